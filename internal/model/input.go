package model

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// MaxImageSize is the largest image accepted for upload, in bytes.
const MaxImageSize = 5 * 1024 * 1024

// TaskNameMax is the longest accepted task name, in runes.
const TaskNameMax = 100

// ValidationError maps form field names to user-facing messages. It is
// returned before any remote call is made.
type ValidationError map[string]string

func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s: %s", f, e[f])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// OrNil returns nil when e holds no field errors.
func (e ValidationError) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Image is an image file chosen for upload. Data is passed through to the
// remote API unmodified.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Validate enforces the size limit and the image MIME type restriction.
func (img Image) Validate() error {
	if len(img.Data) > MaxImageSize {
		return fmt.Errorf("the file is too large (%s, limit %s)",
			humanize.IBytes(uint64(len(img.Data))),
			humanize.IBytes(MaxImageSize))
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return fmt.Errorf("%s is not an image (%s)", img.Name, img.ContentType)
	}
	return nil
}

// imageExtensions are the file extensions CheckImagePath accepts.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
}

// CheckImagePath checks an image path from its metadata and extension
// without reading the file. LoadImage still sniffs the content.
func CheckImagePath(path string) error {
	if err := statImage(path); err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !imageExtensions[ext] {
		return fmt.Errorf("%s is not an image (png, jpg, gif, webp or bmp)", filepath.Base(path))
	}
	return nil
}

func statImage(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reading image %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxImageSize {
		return fmt.Errorf("the file is too large (%s, limit %s)",
			humanize.IBytes(uint64(info.Size())),
			humanize.IBytes(MaxImageSize))
	}
	return nil
}

// LoadImage reads an image from disk, sniffing its content type. The size
// is checked against the file metadata before reading.
func LoadImage(path string) (*Image, error) {
	if err := statImage(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", path, err)
	}

	img := &Image{
		Name:        filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return img, nil
}

// TaskInput is the create/edit task form value.
type TaskInput struct {
	Name   string
	Status Status
	TagIDs []string

	// Image, when set, is uploaded as the task's attachment, replacing
	// any existing one.
	Image *Image

	// RemoveImage drops the existing attachment without a replacement.
	RemoveImage bool
}

// Validate checks the form value locally, before any remote call.
func (in TaskInput) Validate() error {
	verr := ValidationError{}
	if msg := ValidateTaskName(in.Name); msg != "" {
		verr["taskName"] = msg
	}
	if in.Status == "" {
		verr["status"] = "Status is required"
	} else if !in.Status.Valid() {
		verr["status"] = fmt.Sprintf("Unknown status %q", in.Status)
	}
	if in.Image != nil {
		if err := in.Image.Validate(); err != nil {
			verr["image"] = err.Error()
		}
	}
	return verr.OrNil()
}

// ValidateTaskName returns the user-facing message for an invalid task
// name, or "" when the name is acceptable.
func ValidateTaskName(name string) string {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "Task name is required"
	case utf8.RuneCountInString(name) > TaskNameMax:
		return fmt.Sprintf("Task name must be at most %d characters", TaskNameMax)
	}
	return ""
}

// Changed reports whether submitting in against the task as it was when
// the edit session started would change anything.
func (in TaskInput) Changed(t Task) bool {
	if strings.TrimSpace(in.Name) != t.Name {
		return true
	}
	if in.Status != t.Status() {
		return true
	}
	if !SameTagSet(TagIDs(t.Tags), in.TagIDs) {
		return true
	}
	return in.Image != nil || in.RemoveImage
}
