package zcl

// Well-known attribute names from the basic cluster, as resolved by the
// codec. These are the attributes the interview reads and the dispatcher
// backfills from.
const (
	// AttrModelID is the basic cluster's model identifier attribute.
	AttrModelID = "modelId"

	// AttrManufacturerName is the basic cluster's manufacturer name attribute.
	AttrManufacturerName = "manufacturerName"
)

// ClusterBasic is the cluster id of the basic cluster holding device
// identity attributes.
const ClusterBasic uint16 = 0x0000

// ModelID extracts the model identifier from a flattened attribute map.
// The second return is false when the attribute is absent or not a string.
func ModelID(attributes map[string]any) (string, bool) {
	v, ok := attributes[AttrModelID]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
