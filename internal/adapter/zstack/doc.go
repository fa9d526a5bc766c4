// Package zstack drives Texas Instruments ZNP coordinators (CC2531,
// CC2652, CC1352) over the MT serial protocol: framing with XOR
// checksums, SREQ/SRSP correlation, AREQ indications mapped to adapter
// events, and the ZCL codec for application payloads.
package zstack
