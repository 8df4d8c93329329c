package models

// MetadataDocument is the ephemeral badge metadata built per approval.
// Only its resolved URI is persisted; the document itself is uploaded to
// the object store and never stored verbatim in the DB.
type MetadataDocument struct {
	Name         string      `json:"name"`
	Symbol       string      `json:"symbol"`
	Description  string      `json:"description"`
	Image        string      `json:"image"`
	AnimationURL string      `json:"animation_url,omitempty"`
	ExternalURL  string      `json:"external_url,omitempty"`
	Attributes   []Attribute `json:"attributes"`
	Properties   Properties  `json:"properties"`
	Creators     []Creator   `json:"creators"`
}

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

type Creator struct {
	Address string `json:"address"`
	Share   int    `json:"share"` // shares across all creators must sum to 100
}

type Properties struct {
	Files    []FileRef `json:"files"`
	Category string    `json:"category"` // "image" or "video"
}

type FileRef struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

// On-chain length limits for badge metadata fields.
const (
	MaxBadgeNameLength   = 32
	MaxBadgeSymbolLength = 10
)

type MetadataValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}
