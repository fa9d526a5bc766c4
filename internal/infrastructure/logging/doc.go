// Package logging provides structured logging for zigbeed.
//
// It wraps log/slog with configuration-driven handler selection and
// default service/version fields. Packages that need to log accept a
// small Logger interface locally rather than importing this package,
// keeping them testable without a real logger.
package logging
