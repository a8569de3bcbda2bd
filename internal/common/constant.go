package common

// ImageMimeType is the type of images encoded by the service itself.
const ImageMimeType = "image/jpeg"
