package validation

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"recruit-intake/internal/intake/domain"
	"recruit-intake/internal/platform/phone"
)

// MaxAttachmentBytes is the resume size limit (5 MB).
const MaxAttachmentBytes = 5 << 20

// allowedTypes maps accepted MIME types to the file extensions that may carry them.
var allowedTypes = map[string][]string{
	"application/pdf":    {".pdf"},
	"application/msword": {".doc"},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {".docx"},
	"image/png":  {".png"},
	"image/jpeg": {".jpg", ".jpeg"},
}

// officeContainers is the container format the sniffer may report for an Office file it cannot
// identify further. Only the matching container is accepted for each extension.
var officeContainers = map[string]string{
	".doc":  "application/x-ole-storage",
	".docx": "application/zip",
}

// ContactInput is the raw contact step.
type ContactInput struct {
	Name       string
	Phone      string
	Email      string
	Attachment *domain.Attachment
}

// ValidateContact checks name, phone, email and attachment in that order. The returned Contact carries
// the canonical phone and the sniffed attachment content type.
func ValidateContact(in ContactInput, countryCode string) (*domain.Contact, error) {
	name := strings.Join(strings.Fields(in.Name), " ")
	if err := validate.Var(name, "required"); err != nil {
		return nil, fieldErr("name", CodeRequired, "name is required")
	}
	if err := validate.Var(name, "max=120"); err != nil {
		return nil, fieldErr("name", CodeTooLong, "name must be at most 120 characters")
	}

	if len(phone.Digits(in.Phone)) < phone.MinDigits {
		return nil, fieldErr("phone", CodeInvalidPhone, "phone must have at least 10 digits including area code")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate.Var(email, "required"); err != nil {
		return nil, fieldErr("email", CodeRequired, "email is required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return nil, fieldErr("email", CodeInvalidEmail, "invalid email format")
	}

	att, err := validateAttachment(in.Attachment)
	if err != nil {
		return nil, err
	}

	return &domain.Contact{
		Name:           name,
		Phone:          strings.TrimSpace(in.Phone),
		CanonicalPhone: phone.Canonicalize(in.Phone, countryCode),
		Email:          email,
		Attachment:     att,
	}, nil
}

func validateAttachment(a *domain.Attachment) (*domain.Attachment, error) {
	if a == nil || len(a.Data) == 0 {
		return nil, fieldErr("attachment", CodeAttachmentMissing, "a resume file is required")
	}
	if a.Size() > MaxAttachmentBytes {
		return nil, fieldErr("attachment", CodeAttachmentTooLarge, "resume must be at most 5 MB")
	}
	contentType, ok := AttachmentType(a.FileName, a.Data)
	if !ok {
		return nil, fieldErr("attachment", CodeAttachmentType, "resume must be a PDF, DOC, DOCX, PNG or JPG file")
	}
	return &domain.Attachment{FileName: a.FileName, ContentType: contentType, Data: a.Data}, nil
}

// AttachmentType sniffs data and returns the accepted MIME type. The file extension must be on the
// allow-list and agree with the sniffed type; DOC/DOCX files are also accepted when the sniffer only
// recognizes the container format.
func AttachmentType(fileName string, data []byte) (string, bool) {
	ext := strings.ToLower(filepath.Ext(fileName))
	byExt := ""
	for mt, exts := range allowedTypes {
		for _, e := range exts {
			if e == ext {
				byExt = mt
			}
		}
	}
	if byExt == "" {
		return "", false
	}
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(byExt) {
			return byExt, true
		}
	}
	if container, ok := officeContainers[ext]; ok && detected.Is(container) {
		return byExt, true
	}
	return "", false
}
