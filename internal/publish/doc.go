// Package publish uploads a run's result tables to S3-compatible object
// storage. Objects are keyed <prefix>/<run id>/<path relative to workdir>.
package publish
