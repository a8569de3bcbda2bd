package attachments

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/dmitrijs2005/chatattach/internal/common"
	"github.com/dmitrijs2005/chatattach/internal/models"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 90

// SendWithImage encodes img as JPEG and sends it as the message attachment.
func (s *Service) SendWithImage(ctx context.Context, msg *models.Message, img image.Image) error {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	return s.SendWithAttachment(ctx, msg, models.Binary{Data: buf.Bytes(), MimeType: common.ImageMimeType})
}

// ImageForAttachment fetches the attachment and decodes it, applying the
// EXIF orientation.
func (s *Service) ImageForAttachment(ctx context.Context, msg *models.Message) (image.Image, error) {
	data, err := s.Fetch(ctx, msg)
	if err != nil {
		return nil, err
	}
	return decodeImage(data)
}

// LocalImage decodes the binary returned by LocalBinary.
func (s *Service) LocalImage(ctx context.Context, msg *models.Message) (image.Image, error) {
	data, err := s.LocalBinary(ctx, msg)
	if err != nil {
		return nil, err
	}
	return decodeImage(data)
}

// CachedImage decodes the cached binary; nil when not cached or not an image.
func (s *Service) CachedImage(msg *models.Message) image.Image {
	data := s.CachedBinary(msg)
	if data == nil {
		return nil
	}
	img, err := decodeImage(data)
	if err != nil {
		return nil
	}
	return img
}

// Thumbnail fetches the attachment image and scales it to fit within
// width x height, keeping the aspect ratio.
func (s *Service) Thumbnail(ctx context.Context, msg *models.Message, width, height int) (image.Image, error) {
	img, err := s.ImageForAttachment(ctx, msg)
	if err != nil {
		return nil, err
	}
	return imaging.Fit(img, width, height, imaging.Lanczos), nil
}

func decodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
