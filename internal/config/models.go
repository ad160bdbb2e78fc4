package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/muurk/tiscam/internal/camera"
)

// CurrentVersion is the config file format version written by Save
const CurrentVersion = 1

// Registry represents the entire user configuration file.
// It stores named settings profiles, per-camera metadata and application preferences.
type Registry struct {
	Version     int                    `yaml:"version"`
	Profiles    map[string]*Profile    `yaml:"profiles,omitempty"` // Keyed by profile name
	Cameras     map[string]*CameraMeta `yaml:"cameras,omitempty"`  // Keyed by device unique name
	Preferences *Preferences           `yaml:"preferences,omitempty"`
}

// Profile is a named, reusable settings update
type Profile struct {
	Description string          `yaml:"description,omitempty"`
	Settings    camera.Settings `yaml:"settings"`
	UpdatedAt   time.Time       `yaml:"updated_at,omitempty"`
}

// CameraMeta records what was last seen of a physical camera
type CameraMeta struct {
	Nickname     string          `yaml:"nickname,omitempty"`      // User-friendly name
	LastSeen     time.Time       `yaml:"last_seen,omitempty"`     // Last time the camera was opened
	LastSettings camera.Settings `yaml:"last_settings,omitempty"` // Record at last close
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DLLDir          string `yaml:"dll_dir,omitempty"`         // Directory holding tisgrabber_x64.dll
	JournalPath     string `yaml:"journal_path,omitempty"`    // SQLite acquisition journal; empty uses the config dir
	LogLevel        string `yaml:"log_level,omitempty"`       // Default --log-level
	DefaultProfile  string `yaml:"default_profile,omitempty"` // Applied on open when no --profile is given
	DiscoverTimeout int    `yaml:"discover_timeout"`          // mDNS discovery timeout in seconds
}

func defaultPreferences() *Preferences {
	return &Preferences{DiscoverTimeout: 5}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     CurrentVersion,
		Profiles:    make(map[string]*Profile),
		Cameras:     make(map[string]*CameraMeta),
		Preferences: defaultPreferences(),
	}
}

// GetProfile retrieves a profile by name.
// Returns nil if the profile doesn't exist.
func (r *Registry) GetProfile(name string) *Profile {
	return r.Profiles[name]
}

// SetProfile validates and stores a profile, replacing any existing one
// with the same name. Range checks against the driver limits happen when
// the profile is applied; here only the device-independent fields are checked.
func (r *Registry) SetProfile(name, description string, s camera.Settings) error {
	if name == "" {
		return fmt.Errorf("profile name must not be empty")
	}
	if s.IsEmpty() {
		return fmt.Errorf("profile %q sets no fields", name)
	}
	if errs := validateProfile(s); len(errs) > 0 {
		return fmt.Errorf("profile %q: %s", name, camera.FormatValidationErrors(errs))
	}

	if r.Profiles == nil {
		r.Profiles = make(map[string]*Profile)
	}
	r.Profiles[name] = &Profile{
		Description: description,
		Settings:    s,
		UpdatedAt:   time.Now(),
	}
	return nil
}

func validateProfile(s camera.Settings) []error {
	var errs []error
	if s.NumImages != nil {
		if err := camera.ValidateNumImages(*s.NumImages); err != nil {
			errs = append(errs, err)
		}
	}
	if s.VideoFormat != nil {
		if err := camera.ValidateVideoFormat(*s.VideoFormat); err != nil {
			errs = append(errs, err)
		}
	}
	if s.TimeoutMS != nil {
		if err := camera.ValidateTimeout(*s.TimeoutMS); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// DeleteProfile removes a profile. Deleting the default profile also clears
// the preference.
func (r *Registry) DeleteProfile(name string) error {
	if _, ok := r.Profiles[name]; !ok {
		return fmt.Errorf("profile %q not found", name)
	}
	delete(r.Profiles, name)
	if r.Preferences != nil && r.Preferences.DefaultProfile == name {
		r.Preferences.DefaultProfile = ""
	}
	return nil
}

// ProfileNames returns all profile names sorted alphabetically
func (r *Registry) ProfileNames() []string {
	names := make([]string, 0, len(r.Profiles))
	for name := range r.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveSettings returns the settings of the named profile, falling back to
// the default profile when name is empty. No profile yields empty settings.
func (r *Registry) ResolveSettings(name string) (camera.Settings, error) {
	if name == "" && r.Preferences != nil {
		name = r.Preferences.DefaultProfile
	}
	if name == "" {
		return camera.Settings{}, nil
	}
	p := r.GetProfile(name)
	if p == nil {
		return camera.Settings{}, fmt.Errorf("profile %q not found", name)
	}
	return p.Settings, nil
}

// EnsureCamera ensures a camera entry exists in the registry.
// Returns the camera entry (existing or newly created).
func (r *Registry) EnsureCamera(deviceName string) *CameraMeta {
	if r.Cameras == nil {
		r.Cameras = make(map[string]*CameraMeta)
	}

	if meta, exists := r.Cameras[deviceName]; exists {
		return meta
	}

	meta := &CameraMeta{}
	r.Cameras[deviceName] = meta
	return meta
}

// UpdateCameraLastSeen records the settings a camera had when it was last used.
func (r *Registry) UpdateCameraLastSeen(deviceName string, s camera.Settings) {
	meta := r.EnsureCamera(deviceName)
	meta.LastSeen = time.Now()
	meta.LastSettings = s
}
