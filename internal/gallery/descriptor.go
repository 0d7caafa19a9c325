package gallery

// ImageDescriptor identifies one downloadable image on a gallery page
type ImageDescriptor struct {
	ID     string
	Server string
	Type   string
}

// Filename returns the output base name, <id>.<type>
func (d ImageDescriptor) Filename() string {
	return d.ID + "." + d.Type
}
