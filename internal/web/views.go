package web

import (
	"strconv"
	"strings"

	"github.com/kapu/noaa-fisheries-web-go/internal/constants"
	"github.com/kapu/noaa-fisheries-web-go/internal/domain"
	"github.com/kapu/noaa-fisheries-web-go/internal/session"
	"github.com/kapu/noaa-fisheries-web-go/internal/util"
	"github.com/sourcegraph/conc/pool"
)

const notAvailable = "N/A"

// pageMeta feeds the layout and the session hello of the JS shim.
type pageMeta struct {
	Title    string
	Page     session.PageKind
	RegionID string
	FishID   string
}

type RegionView struct {
	ID          string
	Name        string
	URL         string
	FishCount   int
	AvgCalories string
	AvgFat      string
}

func newRegionView(summary domain.RegionSummary) RegionView {
	return RegionView{
		ID:          summary.ID,
		Name:        summary.Name,
		URL:         regionURL(summary.ID),
		FishCount:   summary.FishCount,
		AvgCalories: formatStat(summary.AvgCalories),
		AvgFat:      formatStat(summary.AvgFat),
	}
}

// CardView is one fish card of the region grid.
type CardView struct {
	Index       int
	Handle      string
	URL         string
	Name        string
	Scientific  string
	Image       string
	ImageAlt    string
	ImageCount  int
	Eager       bool
	Calories    string
	Fat         string
	Protein     string
	Description string
}

func newCardView(regionID string, index, eagerCount int, fish domain.FishRecord) CardView {
	card := CardView{
		Index:       index,
		Handle:      string(session.CardHandle(index)),
		URL:         fishURL(regionID, fish.SpeciesName),
		Name:        fish.SpeciesName,
		Scientific:  fish.ScientificName,
		ImageCount:  len(fish.ImageGallery),
		Eager:       index < eagerCount,
		Calories:    displayValue(fish.Calories),
		Fat:         displayValue(fish.FatTotal),
		Protein:     displayValue(fish.Protein),
		Description: util.TruncateString(util.StripHTML(fish.Biology), constants.StringLimits.CardDescription),
	}

	if src, ok := fish.FirstImageURL(); ok {
		card.Image = src
		card.ImageAlt = imageAlt(&fish)
	}
	return card
}

// buildCards renders view models for fish starting at grid index from. HTML
// stripping dominates, so cards are built in parallel.
func buildCards(regionID string, from, eagerCount int, fish []domain.FishRecord) []CardView {
	cards := make([]CardView, len(fish))
	if len(fish) == 0 {
		return cards
	}

	p := pool.New().WithMaxGoroutines(8)
	for i := range fish {
		p.Go(func() {
			cards[i] = newCardView(regionID, from+i, eagerCount, fish[i])
		})
	}
	p.Wait()
	return cards
}

type NutritionRow struct {
	Label string
	Value string
}

type SectionView struct {
	Title string
	Text  string
}

// FishView is the detail page of one species.
type FishView struct {
	Name       string
	Scientific string
	Nutrition  []NutritionRow
	Sections   []SectionView
	Images     []domain.Image
}

func newFishView(fish domain.FishRecord) FishView {
	view := FishView{
		Name:       fish.SpeciesName,
		Scientific: fish.ScientificName,
		Nutrition: []NutritionRow{
			{Label: "Calories", Value: displayValue(fish.Calories)},
			{Label: "Fat", Value: displayValue(fish.FatTotal)},
			{Label: "Protein", Value: displayValue(fish.Protein)},
			{Label: "Cholesterol", Value: displayValue(fish.Cholesterol)},
			{Label: "Sodium", Value: displayValue(fish.Sodium)},
		},
	}

	sections := []SectionView{
		{Title: "Biology", Text: fish.Biology},
		{Title: "Taste", Text: fish.Taste},
		{Title: "Texture", Text: fish.Texture},
		{Title: "Harvest", Text: fish.Harvest},
		{Title: "Bycatch", Text: fish.Bycatch},
		{Title: "Health Benefits", Text: fish.HealthBenefits},
		{Title: "Quote", Text: fish.Quote},
	}
	for _, section := range sections {
		if text := util.StripHTML(section.Text); text != "" {
			view.Sections = append(view.Sections, SectionView{Title: section.Title, Text: text})
		}
	}

	for _, img := range fish.ImageGallery {
		if img.Src == "" {
			continue
		}
		if img.Alt == "" {
			img.Alt = fish.SpeciesName
		}
		view.Images = append(view.Images, img)
	}
	if len(view.Images) == 0 {
		if fallback := fish.FallbackImage(); fallback != nil {
			img := *fallback
			if img.Alt == "" {
				img.Alt = fish.SpeciesName
			}
			view.Images = append(view.Images, img)
		}
	}
	return view
}

func displayValue(value domain.Text) string {
	s := strings.TrimSpace(value.String())
	if s == "" {
		return notAvailable
	}
	return s
}

func formatStat(value *float64) string {
	if value == nil {
		return notAvailable
	}
	return strconv.FormatFloat(*value, 'f', 1, 64)
}

func imageAlt(fish *domain.FishRecord) string {
	if len(fish.ImageGallery) > 0 && fish.ImageGallery[0].Src != "" {
		if alt := fish.ImageGallery[0].Alt; alt != "" {
			return alt
		}
	} else if fallback := fish.FallbackImage(); fallback != nil && fallback.Alt != "" {
		return fallback.Alt
	}
	return fish.SpeciesName
}

func regionURL(regionID string) string {
	return "/region/" + regionID
}

func fishURL(regionID, speciesName string) string {
	return regionURL(regionID) + "/fish/" + util.Slugify(speciesName)
}
