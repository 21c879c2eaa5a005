package validation

import (
	"regexp"
	"strings"
	"time"

	"recruit-intake/internal/intake/domain"
)

// BirthDateLayout is the accepted birth date format (DD/MM/YYYY).
const BirthDateLayout = "02/01/2006"

// MinimumAge is the youngest accepted applicant age in whole years.
const MinimumAge = 13

var birthDatePattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// SexOptions lists the accepted values of the sex field.
var SexOptions = []string{"Feminino", "Masculino", "Outro", "Prefiro não informar"}

// CityLookup resolves a city within a region allow-list.
type CityLookup interface {
	HasRegion(region string) bool
	LookupCity(region, city string) (string, bool)
}

// PersonalInput is the raw personal step.
type PersonalInput struct {
	Region    string
	City      string
	Sex       string
	BirthDate string
}

// ValidatePersonal checks region, city, sex and birth date in that order. now is the reference instant
// for age; its calendar date in its own location is "today".
func ValidatePersonal(in PersonalInput, cities CityLookup, now time.Time) (*domain.Personal, error) {
	region := strings.ToUpper(strings.TrimSpace(in.Region))
	if err := validate.Var(region, "required"); err != nil {
		return nil, fieldErr("region", CodeRequired, "region is required")
	}
	if err := validate.Var(region, "len=2,alpha"); err != nil || !cities.HasRegion(region) {
		return nil, fieldErr("region", CodeInvalidRegion, "unknown region")
	}

	if strings.TrimSpace(in.City) == "" {
		return nil, fieldErr("city", CodeRequired, "city is required")
	}
	city, ok := cities.LookupCity(region, in.City)
	if !ok {
		return nil, fieldErr("city", CodeInvalidCity, "select a city from the list for the chosen region")
	}

	sex, ok := matchSex(in.Sex)
	if !ok {
		if strings.TrimSpace(in.Sex) == "" {
			return nil, fieldErr("sex", CodeRequired, "sex is required")
		}
		return nil, fieldErr("sex", CodeInvalidSex, "invalid sex option")
	}

	birth, err := CheckBirthDate(in.BirthDate, now)
	if err != nil {
		return nil, err
	}

	return &domain.Personal{Region: region, City: city, Sex: sex, BirthDate: birth}, nil
}

// CheckBirthDate parses s as DD/MM/YYYY and enforces a past date with age >= MinimumAge. The three
// failures carry distinct codes: invalid_date, future_date, underage.
func CheckBirthDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fieldErr("birth_date", CodeRequired, "birth date is required")
	}
	if !birthDatePattern.MatchString(s) {
		return time.Time{}, fieldErr("birth_date", CodeInvalidDate, "invalid date, use DD/MM/YYYY")
	}
	birth, err := time.Parse(BirthDateLayout, s)
	if err != nil {
		return time.Time{}, fieldErr("birth_date", CodeInvalidDate, "invalid date")
	}
	today := dateOf(now)
	if birth.After(today) {
		return time.Time{}, fieldErr("birth_date", CodeFutureDate, "birth date cannot be in the future")
	}
	if Age(birth, now) < MinimumAge {
		return time.Time{}, fieldErr("birth_date", CodeUnderage, "applicant must be at least 13 years old")
	}
	return birth, nil
}

// Age returns whole years between birth and the calendar date of now.
func Age(birth, now time.Time) int {
	y, m, d := now.Date()
	years := y - birth.Year()
	if m < birth.Month() || (m == birth.Month() && d < birth.Day()) {
		years--
	}
	return years
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func matchSex(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, opt := range SexOptions {
		if strings.EqualFold(opt, s) {
			return opt, true
		}
	}
	return "", false
}
