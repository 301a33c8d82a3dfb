package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Image is one entry of a species photo gallery.
type Image struct {
	Src   string `json:"src"`
	Alt   string `json:"alt,omitempty"`
	Title string `json:"title,omitempty"`
}

// Gallery is the ordered image list of a record. The upstream API sends an
// array, a single object, or null; all three decode into a slice.
type Gallery []Image

func (g *Gallery) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*g = nil
		return nil
	}

	if trimmed[0] == '{' {
		var single Image
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		*g = Gallery{single}
		return nil
	}

	var images []Image
	if err := json.Unmarshal(trimmed, &images); err != nil {
		return err
	}
	*g = Gallery(images)
	return nil
}

// Text is a free-form upstream value. Numbers and null are accepted and kept
// in their textual form; absence is the empty string.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = ""
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string {
	return string(t)
}

// FishRecord is one species entry as returned by the upstream API.
// Records are immutable once fetched.
type FishRecord struct {
	SpeciesName         string `json:"SpeciesName"`
	ScientificName      string `json:"ScientificName,omitempty"`
	NOAAFisheriesRegion string `json:"NOAAFisheriesRegion"`

	Calories    Text `json:"Calories,omitempty"`
	FatTotal    Text `json:"FatTotal,omitempty"`
	Protein     Text `json:"Protein,omitempty"`
	Cholesterol Text `json:"Cholesterol,omitempty"`
	Sodium      Text `json:"Sodium,omitempty"`

	Biology        string `json:"Biology,omitempty"`
	Taste          string `json:"Taste,omitempty"`
	Texture        string `json:"Texture,omitempty"`
	Harvest        string `json:"Harvest,omitempty"`
	Bycatch        string `json:"Bycatch,omitempty"`
	Quote          string `json:"Quote,omitempty"`
	HealthBenefits string `json:"HealthBenefits,omitempty"`

	ImageGallery             Gallery `json:"ImageGallery,omitempty"`
	SpeciesIllustrationPhoto *Image  `json:"SpeciesIllustrationPhoto,omitempty"`
}

// FirstImageURL returns the first gallery image, falling back to the species
// illustration. ok is false when the record has no usable image.
func (f *FishRecord) FirstImageURL() (string, bool) {
	if f == nil {
		return "", false
	}
	if len(f.ImageGallery) > 0 && f.ImageGallery[0].Src != "" {
		return f.ImageGallery[0].Src, true
	}
	if f.SpeciesIllustrationPhoto != nil && f.SpeciesIllustrationPhoto.Src != "" {
		return f.SpeciesIllustrationPhoto.Src, true
	}
	return "", false
}

// FallbackImage returns the illustration used when the gallery is empty.
func (f *FishRecord) FallbackImage() *Image {
	if f == nil || f.SpeciesIllustrationPhoto == nil || f.SpeciesIllustrationPhoto.Src == "" {
		return nil
	}
	return f.SpeciesIllustrationPhoto
}

func (f *FishRecord) HasGallery() bool {
	return f != nil && len(f.ImageGallery) > 0
}

// RegionSummary holds statistics derived from the records of one region.
// AvgCalories and AvgFat are nil when no record contributed a parseable value.
type RegionSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	FishCount   int      `json:"fishCount"`
	AvgCalories *float64 `json:"avgCalories"`
	AvgFat      *float64 `json:"avgFat"`
}

// ParseNutrient extracts the leading number of values such as "12.5 g" or
// "1,200 mg". ok is false for absent or non-numeric input.
func ParseNutrient(value Text) (float64, bool) {
	s := strings.TrimSpace(string(value))
	if s == "" {
		return 0, false
	}

	seenDigit := false
	seenDot := false
	digits := make([]byte, 0, len(s))
scan:
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
			digits = append(digits, c)
		case c == '.' && !seenDot:
			seenDot = true
			digits = append(digits, c)
		case c == ',' && seenDigit:
			// thousands separator
		case (c == '-' || c == '+') && i == 0:
			digits = append(digits, c)
		default:
			break scan
		}
	}
	if !seenDigit {
		return 0, false
	}

	n, err := strconv.ParseFloat(string(digits), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
