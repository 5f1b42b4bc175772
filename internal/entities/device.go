package entities

// DeviceEntityType distinguishes documents from folders on the device.
type DeviceEntityType string

const (
	EntityDocument DeviceEntityType = "DocumentType"
	EntityFolder   DeviceEntityType = "CollectionType"
)

// DeviceEntity is a file or folder on the reMarkable cloud storage. ContentID
// is the device-side UUID that also names the files inside an exported bundle.
type DeviceEntity struct {
	Name      string
	Parent    string
	ContentID string
	Type      DeviceEntityType
}

// IsDocument reports whether the entity is a syncable document.
func (e DeviceEntity) IsDocument() bool {
	return e.Type == EntityDocument
}
