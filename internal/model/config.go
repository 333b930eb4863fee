package model

import "time"

// ConfigPath is where the configuration document lives inside the backing
// repository. The dot-directory keeps it out of the user's image tree.
const ConfigPath = ".image-hosting/config.json"

// ConfigVersion is written into every document this build produces.
const ConfigVersion = "3.0.0"

// Config is the versioned JSON document stored at ConfigPath. GitHub is the
// system of record: the server never holds a copy beyond the request that
// read or wrote it, and concurrent writers are arbitrated by the blob SHA.
type Config struct {
	Version  string        `json:"version"`
	Storage  StorageConfig `json:"storage"`
	Image    ImageConfig   `json:"image"`
	Links    LinksConfig   `json:"links"`
	User     ConfigUser    `json:"user"`
	LastSync time.Time     `json:"lastSync"`
}

// StorageConfig describes where and how images are stored.
type StorageConfig struct {
	Repository RepoRef         `json:"repository"`
	Directory  DirectoryConfig `json:"directory"`
	Naming     Naming          `json:"naming"`
}

// DirectoryConfig controls the destination directory layout.
// Mode "auto" buckets uploads under Path/year/month/day.
type DirectoryConfig struct {
	Mode        string `json:"mode"`
	Path        string `json:"path"`
	AutoPattern string `json:"autoPattern"`
}

// ImageConfig holds client-side processing preferences. The server stores
// them verbatim; the processing itself happens before upload.
type ImageConfig struct {
	AutoCompress       bool            `json:"autoCompress"`
	CompressionQuality float64         `json:"compressionQuality"`
	MaxWidth           int             `json:"maxWidth"`
	MaxHeight          int             `json:"maxHeight"`
	Watermark          WatermarkConfig `json:"watermark"`
}

type WatermarkConfig struct {
	Enabled  bool    `json:"enabled"`
	Text     string  `json:"text"`
	Position string  `json:"position"`
	Opacity  float64 `json:"opacity"`
}

// LinksConfig controls which link format the UI copies to the clipboard.
type LinksConfig struct {
	Format       string `json:"format"` // "markdown", "html", "url"
	CDN          string `json:"cdn"`    // "github" or "jsdelivr"
	CustomDomain string `json:"customDomain"`
}

// ConfigUser is the owning user's identity snapshot, embedded in the document
// so the repository is self-describing.
type ConfigUser struct {
	ID     int64  `json:"id"`
	Login  string `json:"login"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// DefaultConfig builds the document written by repository initialisation.
func DefaultConfig(identity Identity, repo RepoRef) Config {
	return Config{
		Version: ConfigVersion,
		Storage: StorageConfig{
			Repository: repo,
			Directory: DirectoryConfig{
				Mode:        "auto",
				Path:        "images",
				AutoPattern: "year/month/day",
			},
			Naming: Naming{Strategy: NamingHash},
		},
		Image: ImageConfig{
			AutoCompress:       true,
			CompressionQuality: 0.85,
			MaxWidth:           1920,
			MaxHeight:          1080,
			Watermark: WatermarkConfig{
				Position: "bottom-right",
				Opacity:  0.5,
			},
		},
		Links: LinksConfig{
			Format: "markdown",
			CDN:    "github",
		},
		User: ConfigUser{
			ID:     identity.ID,
			Login:  identity.Login,
			Email:  identity.Email,
			Avatar: identity.AvatarURL,
		},
		LastSync: time.Now().UTC(),
	}
}
