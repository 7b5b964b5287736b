package domain

// ImageFile is a single uploaded image before it is written to a document folder.
type ImageFile struct {
	Filename string
	Data     []byte
}
