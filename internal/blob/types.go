// Package blob is the entry point for blob storage. Callers depend on Store
// and obtain an implementation from Open; the drivers under
// internal/infra/blob are not imported directly.
package blob

import "github.com/Involve-Digital/DoctrineCollectionsReadonly/internal/blob/core"

type (
	Driver     = core.Driver
	PutOptions = core.PutOptions
	Info       = core.Info
	Store      = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrNotFound = core.ErrNotFound
	ErrExists   = core.ErrExists
)
