package models

// AttachmentStatus is the per-message attachment state owned by the
// attachment service.
//
//	NotLoaded -> Loading -> Loaded
//	                    \-> Error
//	Loaded/Error -> Loading (new send or fetch)
type AttachmentStatus int

const (
	StatusNotLoaded AttachmentStatus = iota
	StatusLoading
	StatusLoaded
	StatusError
)

func (s AttachmentStatus) String() string {
	switch s {
	case StatusNotLoaded:
		return "not_loaded"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a send or fetch cycle.
func (s AttachmentStatus) Terminal() bool {
	return s == StatusLoaded || s == StatusError
}
