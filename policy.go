package filevault

import (
	"fmt"
	"mime"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Policy bounds what an upload intent may declare.
type Policy struct {
	// MaxFileSize is the largest declared size in bytes. 0 means no limit.
	MaxFileSize int64
	// AllowedContentTypes lists accepted media types. Empty accepts any.
	AllowedContentTypes []string
	// MaxFileNameLength is the longest file name in characters. 0 defaults to 255.
	MaxFileNameLength int
}

var validate = validator.New()

// Check validates a request that already has defaults applied.
func (p Policy) Check(req UploadRequest) error {
	maxName := p.MaxFileNameLength
	if maxName <= 0 {
		maxName = 255
	}

	if err := validate.Var(req.FileName, fmt.Sprintf("required,max=%d", maxName)); err != nil {
		return fmt.Errorf("check upload: %w: file name too long", ErrInvalidInput)
	}

	if !IsValidFileName(req.FileName) {
		return fmt.Errorf("check upload: %w: invalid file name", ErrInvalidInput)
	}

	sizeTag := "gte=0"
	if p.MaxFileSize > 0 {
		sizeTag = fmt.Sprintf("gte=0,lte=%d", p.MaxFileSize)
	}
	if err := validate.Var(req.FileSize, sizeTag); err != nil {
		return fmt.Errorf("check upload: %w: file size out of range", ErrInvalidInput)
	}

	mediaType, _, err := mime.ParseMediaType(req.ContentType)
	if err != nil {
		return fmt.Errorf("check upload: %w: invalid content type", ErrInvalidInput)
	}

	if len(p.AllowedContentTypes) > 0 && !slices.ContainsFunc(p.AllowedContentTypes, func(allowed string) bool {
		return strings.EqualFold(allowed, mediaType)
	}) {
		return fmt.Errorf("check upload: %w: content type %s not allowed", ErrInvalidInput, mediaType)
	}

	return nil
}
