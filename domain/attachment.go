package domain

import "io"

// Attachment is the transient carrier of one uploaded file between the
// transport layer and media intake. It lives for a single request: the payload
// stream is consumed exactly once, then only the resulting StorageRef survives
// on the Message.
type Attachment struct {
	DeclaredType     string
	DeclaredFilename string
	Payload          io.Reader
}

// StorageRef is the stable public path of a stored attachment,
// e.g. "/uploads/1718091820123456789_a1b2c3d4.png".
type StorageRef string

func (r StorageRef) String() string {
	return string(r)
}
