package resource

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/skinlens/internal/storage"
	"github.com/starford/skinlens/internal/testutil"
)

const fontXML = `<?xml version="1.0" encoding="UTF-8"?>
<fonts>
	<fontset id="Default" unicode="true">
		<font>
			<name>font10</name>
			<filename>NotoSans-Regular.ttf</filename>
			<size>20</size>
		</font>
		<font>
			<name>font_title</name>
			<filename>NotoSans-Bold.ttf</filename>
			<size>42</size>
		</font>
	</fontset>
	<fontset id="Arial">
		<font><name>font10</name><filename>arial.ttf</filename><size>18</size></font>
	</fontset>
</fonts>
`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newResources(t *testing.T, files map[string]string, folders ...string) (string, storage.Provider, *Resources) {
	t.Helper()
	root, store := testutil.TestSkin(t, files)
	return root, store, New(store, folders, WithLogger(quietLogger()))
}

func TestColors(t *testing.T) {
	root, _, r := newResources(t, map[string]string{
		"colors/defaults.xml": "<colors>\n<color name=\"white\">FFFFFFFF</color>\n<color name=\"black\">FF000000</color>\n</colors>",
		"colors/night.xml":    `<colors><color name="white">FFEEEEEE</color><group><color name="nested">00000000</color></group></colors>`,
		"colors/broken.xml":   `<colors><color name="x">`,
	})

	colors := r.Colors()
	if len(colors) != 3 {
		t.Fatalf("expected 3 colors, got %d: %+v", len(colors), colors)
	}
	first := colors[0]
	if first.Name != "white" || first.Content != "FFFFFFFF" || first.Line != 2 {
		t.Errorf("first color = %+v", first)
	}
	if first.File != filepath.Join(root, "colors", "defaults.xml") {
		t.Errorf("file = %q", first.File)
	}

	names := r.ColorNames()
	if len(names) != 2 || names[0] != "black" || names[1] != "white" {
		t.Errorf("ColorNames = %v", names)
	}
}

func TestColors_NoDirectory(t *testing.T) {
	_, _, r := newResources(t, map[string]string{"addon.xml": "<addon/>"})
	if len(r.Colors()) != 0 {
		t.Errorf("expected no colors, got %+v", r.Colors())
	}
}

func TestFonts_FirstFontsetOnly(t *testing.T) {
	_, _, r := newResources(t, map[string]string{"xml/Font.xml": fontXML}, "xml", "21x9")

	fonts := r.Fonts("xml")
	if len(fonts) != 2 {
		t.Fatalf("expected 2 fonts, got %d", len(fonts))
	}
	f := fonts[1]
	if f.Name != "font_title" || f.Size != "42" || f.Filename != "NotoSans-Bold.ttf" || f.Line != 9 {
		t.Errorf("font = %+v", f)
	}
	if f.Content == "" {
		t.Error("expected serialized content")
	}
	if len(r.Fonts("21x9")) != 0 {
		t.Errorf("folder without font file should have no fonts")
	}
}

func TestFonts_LowercaseFallback(t *testing.T) {
	_, _, r := newResources(t, map[string]string{"xml/font.xml": fontXML}, "xml")
	if len(r.Fonts("xml")) != 2 {
		t.Errorf("font.xml fallback not used")
	}
}

func TestReload(t *testing.T) {
	root, _, r := newResources(t, map[string]string{
		"colors/defaults.xml": `<colors><color name="white">FFFFFFFF</color></colors>`,
		"xml/Font.xml":        fontXML,
	}, "xml")

	testutil.WriteFile(t, root, "colors/defaults.xml", `<colors><color name="red">FFFF0000</color><color name="blue">FF0000FF</color></colors>`)
	colors, folder := r.Reload(filepath.Join(root, "colors", "defaults.xml"))
	if !colors || folder != "" {
		t.Errorf("Reload(colors) = %v, %q", colors, folder)
	}
	if len(r.Colors()) != 2 {
		t.Errorf("colors not reloaded: %+v", r.Colors())
	}

	testutil.WriteFile(t, root, "xml/Font.xml", `<fonts><fontset id="x"><font><name>only</name></font></fontset></fonts>`)
	colors, folder = r.Reload(filepath.Join(root, "xml", "Font.xml"))
	if colors || folder != "xml" {
		t.Errorf("Reload(font) = %v, %q", colors, folder)
	}
	if fonts := r.Fonts("xml"); len(fonts) != 1 || fonts[0].Name != "only" {
		t.Errorf("fonts not reloaded: %+v", fonts)
	}

	colors, folder = r.Reload(filepath.Join(root, "xml", "Home.xml"))
	if colors || folder != "" {
		t.Errorf("Reload(other) = %v, %q", colors, folder)
	}
}

func TestMediaFiles(t *testing.T) {
	_, _, r := newResources(t, map[string]string{
		"media/icons/home.png":          "png",
		"media/bg.jpg":                  "jpg",
		"media/studio/abc.png":          "png",
		"media/flags/recordlabel/x.png": "png",
	})
	files, err := r.MediaFiles()
	if err != nil {
		t.Fatalf("MediaFiles: %v", err)
	}
	if len(files) != 2 || files[0] != "bg.jpg" || files[1] != "icons/home.png" {
		t.Errorf("MediaFiles = %v", files)
	}
}

func TestThemes(t *testing.T) {
	root, _, r := newResources(t, map[string]string{"addon.xml": "<addon/>"})
	themes, err := r.Themes()
	if err != nil || themes != nil {
		t.Fatalf("Themes without dir = %v, %v", themes, err)
	}

	if err := os.MkdirAll(filepath.Join(root, "themes", "dark"), 0o755); err != nil {
		t.Fatal(err)
	}
	testutil.WriteFile(t, root, "themes/light.xbt", "x")
	themes, err = r.Themes()
	if err != nil {
		t.Fatalf("Themes: %v", err)
	}
	if len(themes) != 2 || themes[0] != "dark" || themes[1] != "light.xbt" {
		t.Errorf("Themes = %v", themes)
	}
}

func TestFontRefs(t *testing.T) {
	root, _, r := newResources(t, map[string]string{
		"xml/Home.xml":        "<window>\n<controls>\n<control type=\"label\">\n<font>font10</font>\n</control>\n<font><name>nested</name></font>\n</controls>\n</window>",
		"xml/Font.xml":        fontXML,
		"xml/sub/Ignored.xml": `<window><font>font_title</font></window>`,
		"xml/Broken.xml":      `<window>`,
	}, "xml")

	refs, err := r.FontRefs("xml")
	if err != nil {
		t.Fatalf("FontRefs: %v", err)
	}
	var home []string
	for _, ref := range refs {
		if ref.File == filepath.Join(root, "xml", "Home.xml") {
			home = append(home, ref.Name)
			if ref.Line != 4 {
				t.Errorf("line = %d, want 4", ref.Line)
			}
		}
		if ref.File == filepath.Join(root, "xml", "sub", "Ignored.xml") {
			t.Error("nested directory scanned")
		}
	}
	if len(home) != 1 || home[0] != "font10" {
		t.Errorf("Home refs = %v", home)
	}
}
