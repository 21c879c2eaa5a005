package validation

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"recruit-intake/internal/catalog"
	"recruit-intake/internal/intake/domain"
)

func pdfOfSize(n int) []byte {
	b := make([]byte, n)
	copy(b, "%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	return b
}

func validContact() ContactInput {
	return ContactInput{
		Name:       "Ana Silva",
		Phone:      "15999998888",
		Email:      "ana@x.com",
		Attachment: &domain.Attachment{FileName: "cv.pdf", Data: pdfOfSize(1 << 20)},
	}
}

func wantFieldError(t *testing.T, err error, field, code string) {
	t.Helper()
	fe, ok := AsFieldError(err)
	if !ok {
		t.Fatalf("err = %v, want *FieldError", err)
	}
	if fe.Field != field || fe.Code != code {
		t.Errorf("FieldError = {%s %s}, want {%s %s}", fe.Field, fe.Code, field, code)
	}
	if fe.Message == "" {
		t.Error("FieldError.Message should not be empty")
	}
}

func TestValidateContact_Valid(t *testing.T) {
	c, err := ValidateContact(validContact(), "55")
	if err != nil {
		t.Fatalf("ValidateContact: %v", err)
	}
	if c.CanonicalPhone != "5515999998888" {
		t.Errorf("CanonicalPhone = %q", c.CanonicalPhone)
	}
	if c.Attachment.ContentType != "application/pdf" {
		t.Errorf("ContentType = %q, want application/pdf", c.Attachment.ContentType)
	}
}

func TestValidateContact_NormalizesNameAndEmail(t *testing.T) {
	in := validContact()
	in.Name = "  Ana   Silva "
	in.Email = " Ana@X.com "
	c, err := ValidateContact(in, "55")
	if err != nil {
		t.Fatalf("ValidateContact: %v", err)
	}
	if c.Name != "Ana Silva" || c.Email != "ana@x.com" {
		t.Errorf("got name=%q email=%q", c.Name, c.Email)
	}
}

func TestValidateContact_FirstViolation(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*ContactInput)
		field string
		code  string
	}{
		{"empty name", func(c *ContactInput) { c.Name = "  " }, "name", CodeRequired},
		{"name and phone bad reports name", func(c *ContactInput) { c.Name = ""; c.Phone = "1" }, "name", CodeRequired},
		{"short phone", func(c *ContactInput) { c.Phone = "(15) 9999-888" }, "phone", CodeInvalidPhone},
		{"missing email", func(c *ContactInput) { c.Email = "" }, "email", CodeRequired},
		{"bad email", func(c *ContactInput) { c.Email = "ana@" }, "email", CodeInvalidEmail},
		{"no attachment", func(c *ContactInput) { c.Attachment = nil }, "attachment", CodeAttachmentMissing},
		{"too large", func(c *ContactInput) {
			c.Attachment = &domain.Attachment{FileName: "cv.pdf", Data: pdfOfSize(MaxAttachmentBytes + 1)}
		}, "attachment", CodeAttachmentTooLarge},
		{"bad extension", func(c *ContactInput) {
			c.Attachment = &domain.Attachment{FileName: "cv.exe", Data: pdfOfSize(100)}
		}, "attachment", CodeAttachmentType},
		{"text disguised as pdf", func(c *ContactInput) {
			c.Attachment = &domain.Attachment{FileName: "cv.pdf", Data: []byte("just some text")}
		}, "attachment", CodeAttachmentType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validContact()
			tc.mut(&in)
			_, err := ValidateContact(in, "55")
			wantFieldError(t, err, tc.field, tc.code)
		})
	}
}

func TestValidateContact_ExactlyFiveMB(t *testing.T) {
	in := validContact()
	in.Attachment = &domain.Attachment{FileName: "cv.pdf", Data: pdfOfSize(MaxAttachmentBytes)}
	if _, err := ValidateContact(in, "55"); err != nil {
		t.Errorf("5 MB attachment should be accepted: %v", err)
	}
}

func TestAttachmentType(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	jpg := append([]byte{0xff, 0xd8, 0xff, 0xe0}, bytes.Repeat([]byte{0}, 64)...)
	zip := append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0}, 64)...)
	ole := append([]byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}, bytes.Repeat([]byte{0}, 512)...)
	opaque := bytes.Repeat([]byte{0x01, 0x02, 0x03, 0x04}, 32)
	tests := []struct {
		file string
		data []byte
		want string
		ok   bool
	}{
		{"photo.png", png, "image/png", true},
		{"photo.JPG", jpg, "image/jpeg", true},
		{"photo.jpeg", jpg, "image/jpeg", true},
		{"cv.docx", zip, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", true},
		{"cv.doc", ole, "application/msword", true},
		{"photo.png", jpg, "", false},
		{"cv.pdf", zip, "", false},
		{"cv.docx", opaque, "", false},
		{"cv.doc", opaque, "", false},
		{"cv.doc", zip, "", false},
		{"cv.docx", ole, "", false},
		{"cv.txt", []byte("hello"), "", false},
	}
	for _, tc := range tests {
		got, ok := AttachmentType(tc.file, tc.data)
		if ok != tc.ok || got != tc.want {
			t.Errorf("AttachmentType(%q) = %q, %v; want %q, %v", tc.file, got, ok, tc.want, tc.ok)
		}
	}
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default: %v", err)
	}
	return c
}

var refNow = time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)

func yearsAgo(n int) string {
	return refNow.AddDate(-n, 0, 0).Format(BirthDateLayout)
}

func TestValidatePersonal_Valid(t *testing.T) {
	p, err := ValidatePersonal(PersonalInput{Region: "sp", City: "sorocaba", Sex: "feminino", BirthDate: yearsAgo(20)}, testCatalog(t), refNow)
	if err != nil {
		t.Fatalf("ValidatePersonal: %v", err)
	}
	if p.Region != "SP" || p.City != "Sorocaba" || p.Sex != "Feminino" {
		t.Errorf("Personal = %+v", p)
	}
	if p.BirthDate.Year() != 2006 {
		t.Errorf("BirthDate = %v", p.BirthDate)
	}
}

func TestValidatePersonal_Violations(t *testing.T) {
	base := PersonalInput{Region: "SP", City: "Sorocaba", Sex: "Feminino", BirthDate: yearsAgo(20)}
	tests := []struct {
		name  string
		mut   func(*PersonalInput)
		field string
		code  string
	}{
		{"missing region", func(p *PersonalInput) { p.Region = "" }, "region", CodeRequired},
		{"unknown region", func(p *PersonalInput) { p.Region = "XX" }, "region", CodeInvalidRegion},
		{"missing city", func(p *PersonalInput) { p.City = " " }, "city", CodeRequired},
		{"free text city", func(p *PersonalInput) { p.City = "Minha Cidade" }, "city", CodeInvalidCity},
		{"city of other region", func(p *PersonalInput) { p.City = "Curitiba" }, "city", CodeInvalidCity},
		{"missing sex", func(p *PersonalInput) { p.Sex = "" }, "sex", CodeRequired},
		{"bad sex", func(p *PersonalInput) { p.Sex = "x" }, "sex", CodeInvalidSex},
		{"underage", func(p *PersonalInput) { p.BirthDate = yearsAgo(10) }, "birth_date", CodeUnderage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mut(&in)
			_, err := ValidatePersonal(in, testCatalog(t), refNow)
			wantFieldError(t, err, tc.field, tc.code)
		})
	}
}

func TestCheckBirthDate_DistinctFailures(t *testing.T) {
	tests := []struct {
		in   string
		code string
	}{
		{"", CodeRequired},
		{"31/04/2000", CodeInvalidDate},
		{"29/02/2001", CodeInvalidDate},
		{"2000-01-01", CodeInvalidDate},
		{"1/1/2000", CodeInvalidDate},
		{"19/10/2026", CodeFutureDate},
		{"01/01/2030", CodeFutureDate},
		{"18/10/2026", CodeUnderage},
		{"19/10/2013", CodeUnderage},
	}
	for _, tc := range tests {
		_, err := CheckBirthDate(tc.in, refNow)
		wantFieldError(t, err, "birth_date", tc.code)
	}
	msgs := map[string]bool{}
	for _, in := range []string{"31/04/2000", "19/10/2026", "19/10/2013"} {
		_, err := CheckBirthDate(in, refNow)
		fe, _ := AsFieldError(err)
		msgs[fe.Message] = true
	}
	if len(msgs) != 3 {
		t.Errorf("invalid/future/underage messages should be distinct, got %v", msgs)
	}
}

func TestCheckBirthDate_Boundary(t *testing.T) {
	if _, err := CheckBirthDate("18/10/2013", refNow); err != nil {
		t.Errorf("13th birthday today should pass: %v", err)
	}
	if _, err := CheckBirthDate("29/02/2000", refNow); err != nil {
		t.Errorf("leap day birth should pass: %v", err)
	}
}

func TestCheckBirthDate_AcceptsAllAdultAges(t *testing.T) {
	for age := MinimumAge; age <= 90; age++ {
		if _, err := CheckBirthDate(yearsAgo(age), refNow); err != nil {
			t.Errorf("age %d rejected: %v", age, err)
		}
	}
	for age := 0; age < MinimumAge; age++ {
		_, err := CheckBirthDate(yearsAgo(age), refNow)
		fe, ok := AsFieldError(err)
		if !ok || fe.Code != CodeUnderage {
			t.Errorf("age %d err = %v, want underage", age, err)
		}
	}
}

func TestAge(t *testing.T) {
	birth := time.Date(2000, 10, 19, 0, 0, 0, 0, time.UTC)
	if got := Age(birth, refNow); got != 25 {
		t.Errorf("Age day before birthday = %d, want 25", got)
	}
	if got := Age(birth, refNow.AddDate(0, 0, 1)); got != 26 {
		t.Errorf("Age on birthday = %d, want 26", got)
	}
}

func TestValidateProfessional(t *testing.T) {
	p, err := ValidateProfessional(ProfessionalInput{PrimaryRole: " Vendedora ", ExtraRoles: []string{"Caixa", " ", "Estoquista "}})
	if err != nil {
		t.Fatalf("ValidateProfessional: %v", err)
	}
	if p.PrimaryRole != "Vendedora" {
		t.Errorf("PrimaryRole = %q", p.PrimaryRole)
	}
	if len(p.ExtraRoles) != 2 || p.ExtraRoles[1] != "Estoquista" {
		t.Errorf("ExtraRoles = %v", p.ExtraRoles)
	}

	_, err = ValidateProfessional(ProfessionalInput{})
	wantFieldError(t, err, "primary_role", CodeRequired)

	_, err = ValidateProfessional(ProfessionalInput{PrimaryRole: "Dev", ExtraRoles: []string{"a", "b", "c", "d", "e", "f"}})
	wantFieldError(t, err, "extra_roles", CodeTooManyRoles)

	if _, err := ValidateProfessional(ProfessionalInput{PrimaryRole: "Dev", ExtraRoles: []string{"a", "b", "c", "d", "e"}}); err != nil {
		t.Errorf("five extra roles should pass: %v", err)
	}

	_, err = ValidateProfessional(ProfessionalInput{PrimaryRole: "Dev", ExtraRoles: []string{strings.Repeat("x", 121)}})
	wantFieldError(t, err, "extra_roles[0]", CodeTooLong)
}
