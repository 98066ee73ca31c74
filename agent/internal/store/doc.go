// Package store manages the on-disk artifact buffer: the per-user directory
// where captured screens wait until the uploader confirms delivery. It covers
// scoped directory creation, write/delete of individual artifacts, counting
// for status reports, and age-based purging of leftovers.
package store
