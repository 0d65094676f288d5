// Package addon reads the addon.xml manifest of a Kodi skin.
package addon

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"path/filepath"
	"sort"

	"golang.org/x/mod/semver"
	"golang.org/x/net/html/charset"

	"github.com/starford/skinlens/internal/storage"
)

// ManifestFile is the manifest name at the skin root.
const ManifestFile = "addon.xml"

// GUIAddonID is the import that carries the skinning API version.
const GUIAddonID = "xbmc.gui"

// Addon is the parsed skin manifest.
type Addon struct {
	XMLName  xml.Name `xml:"addon"`
	ID       string   `xml:"id,attr"`
	Name     string   `xml:"name,attr"`
	Version  string   `xml:"version,attr"`
	Provider string   `xml:"provider-name,attr"`

	Requires []struct {
		Addon    string `xml:"addon,attr"`
		Version  string `xml:"version,attr"`
		Optional string `xml:"optional,attr,omitempty"`
	} `xml:"requires>import"`

	Extensions []struct {
		Point     string `xml:"point,attr"`
		Debugging string `xml:"debugging,attr,omitempty"`
		Res       []Res  `xml:"res"`
	} `xml:"extension"`

	root string
}

// Res is one resolution entry of the skin extension.
type Res struct {
	Width   int    `xml:"width,attr"`
	Height  int    `xml:"height,attr"`
	Aspect  string `xml:"aspect,attr"`
	Default bool   `xml:"default,attr"`
	Folder  string `xml:"folder,attr"`
}

// Load reads addon.xml from the root of store.
func Load(store storage.Provider) (*Addon, error) {
	data, err := store.Read(ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("addon: read manifest: %w", err)
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	a := &Addon{root: store.Root()}
	if err := dec.Decode(a); err != nil {
		return nil, fmt.Errorf("addon: decode manifest: %w", err)
	}
	return a, nil
}

// GUIVersion returns the version of the xbmc.gui import, or "" when the
// manifest does not import it.
func (a *Addon) GUIVersion() string {
	for _, r := range a.Requires {
		if r.Addon == GUIAddonID {
			return r.Version
		}
	}
	return ""
}

// Release maps a Kodi release onto the highest xbmc.gui version it ships.
type Release struct {
	Name       string
	GUIVersion string
}

// Releases lists Kodi releases oldest first.
var Releases = []Release{
	{Name: "gotham", GUIVersion: "5.0.1"},
	{Name: "helix", GUIVersion: "5.3.0"},
	{Name: "isengard", GUIVersion: "5.9.0"},
	{Name: "jarvis", GUIVersion: "5.10.0"},
	{Name: "krypton", GUIVersion: "5.12.0"},
	{Name: "leia", GUIVersion: "5.14.0"},
	{Name: "matrix", GUIVersion: "5.15.0"},
	{Name: "nexus", GUIVersion: "5.16.0"},
	{Name: "omega", GUIVersion: "5.17.0"},
}

// APIRelease returns the oldest release whose xbmc.gui version is at least
// the imported one. It is "" when the import is missing, unparsable or newer
// than every known release.
func (a *Addon) APIRelease() string {
	v := "v" + a.GUIVersion()
	if !semver.IsValid(v) {
		return ""
	}
	for _, r := range Releases {
		if semver.Compare(v, "v"+r.GUIVersion) <= 0 {
			return r.Name
		}
	}
	return ""
}

// Resolutions returns every res entry in manifest order.
func (a *Addon) Resolutions() []Res {
	var out []Res
	for _, ext := range a.Extensions {
		out = append(out, ext.Res...)
	}
	return out
}

// Folders returns the distinct resolution folders, sorted.
func (a *Addon) Folders() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range a.Resolutions() {
		if r.Folder == "" {
			continue
		}
		if _, dup := seen[r.Folder]; dup {
			continue
		}
		seen[r.Folder] = struct{}{}
		out = append(out, r.Folder)
	}
	sort.Strings(out)
	return out
}

// DefaultFolder returns the folder of the res marked default="true", or ""
// when none is.
func (a *Addon) DefaultFolder() string {
	for _, r := range a.Resolutions() {
		if r.Default {
			return r.Folder
		}
	}
	return ""
}

func (a *Addon) LanguagePath() string { return filepath.Join(a.root, "language") }
func (a *Addon) ThemePath() string    { return filepath.Join(a.root, "themes") }
func (a *Addon) MediaPath() string    { return filepath.Join(a.root, "media") }
func (a *Addon) ColorPath() string    { return filepath.Join(a.root, "colors") }
