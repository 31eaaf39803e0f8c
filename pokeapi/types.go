package pokeapi

// NamedResource is the {name, url} pair the upstream uses to reference other resources.
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ResourceList is a paginated list endpoint response.
type ResourceList struct {
	Count    int             `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  []NamedResource `json:"results"`
}

// TypeMember is one entry of a type's pokemon list.
type TypeMember struct {
	Slot    int            `json:"slot"`
	Pokemon *NamedResource `json:"pokemon"`
}

// Type is the /type/{name} payload, reduced to what the catalog reads.
type Type struct {
	ID      int          `json:"id"`
	Name    string       `json:"name"`
	Pokemon []TypeMember `json:"pokemon"`
}

// Artwork is one entry under sprites.other.
type Artwork struct {
	FrontDefault *string `json:"front_default"`
	FrontShiny   *string `json:"front_shiny"`
}

// OtherSprites holds the alternative sprite sets.
type OtherSprites struct {
	OfficialArtwork *Artwork `json:"official-artwork"`
	Home            *Artwork `json:"home"`
}

// Sprites is the sprite block of a pokemon. Every field is optional upstream.
type Sprites struct {
	FrontDefault *string       `json:"front_default"`
	FrontShiny   *string       `json:"front_shiny"`
	BackDefault  *string       `json:"back_default"`
	Other        *OtherSprites `json:"other"`
}

type PokemonType struct {
	Slot int            `json:"slot"`
	Type *NamedResource `json:"type"`
}

type PokemonAbility struct {
	Slot     int            `json:"slot"`
	IsHidden bool           `json:"is_hidden"`
	Ability  *NamedResource `json:"ability"`
}

type PokemonStat struct {
	BaseStat int            `json:"base_stat"`
	Effort   int            `json:"effort"`
	Stat     *NamedResource `json:"stat"`
}

// Pokemon is the /pokemon/{idOrName} payload, reduced to what the catalog reads.
type Pokemon struct {
	ID             int              `json:"id"`
	Name           string           `json:"name"`
	Height         int              `json:"height"`
	Weight         int              `json:"weight"`
	BaseExperience *int             `json:"base_experience"`
	Sprites        *Sprites         `json:"sprites"`
	Types          []PokemonType    `json:"types"`
	Abilities      []PokemonAbility `json:"abilities"`
	Stats          []PokemonStat    `json:"stats"`
}
