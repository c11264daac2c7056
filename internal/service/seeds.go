package service

import (
	"embed"
	"encoding/json"
	"strings"

	"github.com/xxxsen/tunebox/internal/model"
)

//go:embed seeds/*.json
var seedsFS embed.FS

var seedFiles = map[string]string{
	"vn":     "seeds/vn.json",
	"kr":     "seeds/kr.json",
	"us":     "seeds/us.json",
	"gb":     "seeds/us.json",
	"global": "seeds/global.json",
}

var fallbackSeeds = []model.PopularSong{
	{Title: "Die With A Smile", Artist: "Lady Gaga, Bruno Mars", Genre: "Pop", Year: "2025"},
	{Title: "Abracadabra", Artist: "Lady Gaga", Genre: "Pop", Year: "2025"},
	{Title: "BIRDS OF A FEATHER", Artist: "Billie Eilish", Genre: "Pop", Year: "2025"},
	{Title: "Timeless", Artist: "The Weeknd", Genre: "R&B", Year: "2025"},
	{Title: "like JENNIE", Artist: "JENNIE", Genre: "K-pop", Year: "2025"},
}

// PopularSeeds returns the seed list for country. Countries without their
// own list use the global one; the built-in list is the last resort.
func PopularSeeds(country model.Country) []model.PopularSong {
	key := strings.ToLower(string(country))
	file, ok := seedFiles[key]
	if !ok {
		file = seedFiles["global"]
	}
	if seeds, err := readSeeds(file); err == nil && len(seeds) > 0 {
		return seeds
	}
	if seeds, err := readSeeds(seedFiles["global"]); err == nil && len(seeds) > 0 {
		return seeds
	}
	out := make([]model.PopularSong, len(fallbackSeeds))
	copy(out, fallbackSeeds)
	return out
}

func readSeeds(file string) ([]model.PopularSong, error) {
	raw, err := seedsFS.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var seeds []model.PopularSong
	if err := json.Unmarshal(raw, &seeds); err != nil {
		return nil, err
	}
	return seeds, nil
}
