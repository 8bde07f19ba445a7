package bam

// Category classifies an archive by origin and counting behavior.
type Category int

const (
	// CategoryBaseMain is a base-game archive in the base installation tree.
	CategoryBaseMain Category = iota
	// CategoryDLC is downloadable-content archive in the base installation tree.
	CategoryDLC
	// CategoryOptional is optional (Creation Club style) content whose plugin
	// is listed in the active-content descriptor.
	CategoryOptional
	// CategoryVendorLocked is content in the base tree that the tool chain
	// cannot decode or extract.
	CategoryVendorLocked
	// CategoryReplacement is an archive outside the base tree whose name
	// exactly matches a known base/DLC archive. Replacements never count
	// toward new-content totals.
	CategoryReplacement
	// CategoryNewContent is any other archive found outside the base tree.
	CategoryNewContent
)

// String returns a human-readable category name.
func (c Category) String() string {
	switch c {
	case CategoryBaseMain:
		return "base-main"
	case CategoryDLC:
		return "dlc"
	case CategoryOptional:
		return "optional-content"
	case CategoryVendorLocked:
		return "vendor-locked"
	case CategoryReplacement:
		return "replacement"
	case CategoryNewContent:
		return "new-content"
	default:
		return "unknown"
	}
}

// Classification is the result of categorizing a single archive file name.
type Classification struct {
	Category Category
	Texture  bool
}

// ContentSource is one archive file participating in a merge operation.
// Sources are immutable once classified.
type ContentSource struct {
	Path     string // absolute path to the archive file
	Unit     string // owning unit (mod folder or plugin stem)
	Category Category
	Texture  bool
	Size     int64
	Rank     int // precedence rank; 0 wins all conflicts
}

// PriorityEntry is one unit in the resolved load order.
type PriorityEntry struct {
	Name string
	Rank int // 0 = highest precedence
}

// StreamKind identifies a homogeneous content sub-stream within the staging
// tree. The destination codec requires homogeneous packing per archive.
type StreamKind int

const (
	StreamGeneral StreamKind = iota
	StreamTexture
	StreamAudio
)

// String returns the stream's directory name within a staging tree.
func (k StreamKind) String() string {
	switch k {
	case StreamGeneral:
		return "General"
	case StreamTexture:
		return "Textures"
	case StreamAudio:
		return "Sounds"
	default:
		return "unknown"
	}
}

// StagedFile is one file in a staging tree sub-stream.
type StagedFile struct {
	RelPath string
	Size    int64
}

// ArchiveInfo describes one archive discovered on disk.
type ArchiveInfo struct {
	Path string // absolute path
	Name string // base file name
	Unit string // first path element relative to the scan root, or "" for flat scans
	Size int64
}
