package airquality

// Species is a tracked pollen species, keyed by its upstream field name.
type Species string

const (
	Alder   Species = "alder_pollen"
	Birch   Species = "birch_pollen"
	Olive   Species = "olive_pollen"
	Grass   Species = "grass_pollen"
	Mugwort Species = "mugwort_pollen"
	Ragweed Species = "ragweed_pollen"
)

// Category groups species for display.
type Category string

const (
	CategoryTree  Category = "tree"
	CategoryGrass Category = "grass"
)

// AllSpecies lists species in display order: trees first, then grasses
// and weeds.
var AllSpecies = []Species{Alder, Birch, Olive, Grass, Mugwort, Ragweed}

// Name returns the display name.
func (s Species) Name() string {
	switch s {
	case Alder:
		return "Alder"
	case Birch:
		return "Birch"
	case Olive:
		return "Olive"
	case Grass:
		return "Grass"
	case Mugwort:
		return "Mugwort"
	case Ragweed:
		return "Ragweed"
	}
	return string(s)
}

// Category returns whether the species is a tree or a grass/weed.
func (s Species) Category() Category {
	switch s {
	case Alder, Birch, Olive:
		return CategoryTree
	}
	return CategoryGrass
}
