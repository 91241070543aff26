package prompt

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/nickelsound/3DprinterMonitor/internal/logger"
)

// DefaultSystem is the system role text sent with every analysis request.
const DefaultSystem = "You are a 3D printing expert."

// DefaultUser is the analytical instruction for the three-image failure check.
const DefaultUser = "Analyze the following images and determine if there are any issues with the 3D print, specifically looking for signs of a print " +
	"failure such as spaghetti (extruded filament mess) or if the printed object has detached from the print bed. If the object has detached, " +
	"it will not move consistently with the motion of the print bed across three consecutive photos. If all images confirm an issue, say YES, " +
	"otherwise return NO. After the answer, provide a detailed analysis of each image. " +
	"Image 1 Analysis: Spaghetti: Describe any visible spaghetti or extruded filament mess around the print area. Detached Object: Check if " +
	"the printed object shows any signs of detachment from the print bed. Describe its alignment and position. Movement Consistency: " +
	"Determine if the object moves consistently with the motion of the print bed. " +
	"Image 2 Analysis: Spaghetti: Describe any changes in the presence of spaghetti or filament mess. Detached Object: Compare the object's " +
	"position and alignment with Image 1. Note any signs of further detachment. Movement Consistency: Assess if the object's movement remains " +
	"consistent with the print bed. " +
	"Image 3 Analysis: Spaghetti: Note any continued presence or absence of spaghetti or filament mess. Detached Object: Compare the object's " +
	"position and alignment with Images 1 and 2. Confirm if there are further signs of detachment. Movement Consistency: Evaluate if the " +
	"object's movement is consistent with the print bed. If the analysis of the three images indicates that the printed object has detached " +
	"from the print bed, causing movement inconsistency, confirm a print failure and the need to stop the print."

// Snapshot is one immutable prompt pair.
type Snapshot struct {
	System   string
	User     string
	LoadedAt time.Time
}

// Registry serves the analysis prompts. Without a file it returns the
// built-in defaults; with one it overlays the file's values and hot-reloads
// on change.
type Registry struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot Snapshot
}

type promptFile struct {
	System string `mapstructure:"system"`
	User   string `mapstructure:"user"`
}

// NewRegistry builds a registry. An empty path means defaults only, no
// watching.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: strings.TrimSpace(path)}
	r.snapshot = Snapshot{System: DefaultSystem, User: DefaultUser, LoadedAt: time.Now()}
	if r.path == "" {
		return r, nil
	}
	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read prompts file failed: %w", err)
	}
	r.v = v
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("prompt reload failed (%s): %v", evt.Name, err)
			return
		}
		logger.Infof("analysis prompts reloaded from %s", r.path)
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot returns the current prompt pair.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}

func (r *Registry) reload() error {
	if err := r.v.ReadInConfig(); err != nil {
		return err
	}
	var file promptFile
	if err := r.v.Unmarshal(&file); err != nil {
		return fmt.Errorf("parsing prompts file failed: %w", err)
	}
	snap := Snapshot{System: DefaultSystem, User: DefaultUser, LoadedAt: time.Now()}
	if s := strings.TrimSpace(file.System); s != "" {
		snap.System = s
	}
	if u := strings.TrimSpace(file.User); u != "" {
		snap.User = u
	}
	r.mu.Lock()
	r.snapshot = snap
	r.mu.Unlock()
	return nil
}
