package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/skinlens/internal/models"
	"github.com/starford/skinlens/internal/resource"
	"github.com/starford/skinlens/internal/skin"
	"github.com/starford/skinlens/internal/skinservice"
	"github.com/starford/skinlens/internal/sse"
	"github.com/starford/skinlens/internal/testutil"
)

var skinFiles = map[string]string{
	"xml/Includes.xml": `<includes>
	<include file="Buttons.xml"/>
	<constant name="PosX">20</constant>
	<include name="Home"><control type="group"><include>Button</include></control></include>
</includes>`,
	"xml/Buttons.xml":      `<includes><include name="Button"><control type="button"/></include></includes>`,
	"xml/Font.xml":         `<fonts><fontset id="Default"><font><name>font10</name><size>20</size></font></fontset></fonts>`,
	"xml/Home.xml":         `<window><controls><control type="label"><font>font10</font></control></controls></window>`,
	"colors/defaults.xml":  `<colors><color name="white">FFFFFFFF</color></colors>`,
	"media/icons/home.png": "png-bytes",
}

type testEnv struct {
	root   string
	router http.Handler
	broker *sse.Broker
}

func newTestEnv(t *testing.T, authToken string) *testEnv {
	t.Helper()
	root, store := testutil.TestSkin(t, skinFiles)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	folders := []string{"xml"}
	sk := skin.New(store, folders, skin.WithLogger(logger))
	res := resource.New(store, folders, resource.WithLogger(logger))
	svc := skinservice.NewService(store, sk, res,
		skinservice.WithLogger(logger),
		skinservice.WithIndex(testutil.TestDB(t)))
	if err := svc.SyncIndex(context.Background()); err != nil {
		t.Fatalf("SyncIndex: %v", err)
	}

	broker := sse.NewBroker(time.Millisecond)
	t.Cleanup(broker.Close)

	return &testEnv{
		root:   root,
		router: NewRouter(svc, authToken != "", authToken, broker, root),
		broker: broker,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rdr)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestListFolders(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodGet, "/folders", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp FolderListResponse
	decode(t, w, &resp)
	if len(resp.Folders) != 1 || resp.Folders[0].Folder != "xml" || resp.Folders[0].Includes != 3 {
		t.Errorf("folders = %+v", resp.Folders)
	}
}

func TestListIncludes(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodGet, "/folders/xml/includes?kind=include", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp IncludeListResponse
	decode(t, w, &resp)
	if resp.Total != 2 {
		t.Errorf("total = %d, includes = %+v", resp.Total, resp.Includes)
	}

	if w := env.do(t, http.MethodGet, "/folders/nope/includes", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown folder = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/folders/xml/includes?kind=window", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad kind = %d, want 400", w.Code)
	}
}

func TestGetInclude_Resolve(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodGet, "/folders/xml/includes/Home?resolve=true", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var d IncludeDetail
	decode(t, w, &d)
	if d.Name != "Home" || !strings.Contains(d.Resolved, `<control type="button"/>`) {
		t.Errorf("detail = %+v", d)
	}

	if w := env.do(t, http.MethodGet, "/folders/xml/includes/Missing", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("missing include = %d, want 404", w.Code)
	}
}

func TestConstantsFilesFonts(t *testing.T) {
	env := newTestEnv(t, "")

	var names NameListResponse
	decode(t, env.do(t, http.MethodGet, "/folders/xml/constants", nil, ""), &names)
	if len(names.Items) != 1 || names.Items[0] != "PosX" {
		t.Errorf("constants = %v", names.Items)
	}

	decode(t, env.do(t, http.MethodGet, "/folders/xml/files", nil, ""), &names)
	if len(names.Items) != 2 || names.Items[0] != "xml/Includes.xml" {
		t.Errorf("files = %v", names.Items)
	}

	var fonts struct {
		Fonts []models.Font `json:"fonts"`
	}
	decode(t, env.do(t, http.MethodGet, "/folders/xml/fonts", nil, ""), &fonts)
	if len(fonts.Fonts) != 1 || fonts.Fonts[0].Name != "font10" {
		t.Errorf("fonts = %+v", fonts.Fonts)
	}

	var refs struct {
		Refs []models.FontRef `json:"refs"`
	}
	decode(t, env.do(t, http.MethodGet, "/folders/xml/fontrefs", nil, ""), &refs)
	if len(refs.Refs) != 1 || refs.Refs[0].Name != "font10" {
		t.Errorf("font refs = %+v", refs.Refs)
	}
}

func TestCompleteAndDefinitions(t *testing.T) {
	env := newTestEnv(t, "")

	var comp CompleteResponse
	decode(t, env.do(t, http.MethodGet, "/folders/xml/complete?prefix=bu", nil, ""), &comp)
	if len(comp.Items) != 1 || comp.Items[0].Name != "Button" {
		t.Errorf("complete = %+v", comp.Items)
	}

	w := env.do(t, http.MethodGet, "/definitions/Button", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("definitions status = %d", w.Code)
	}
	var defs DefinitionsResponse
	decode(t, w, &defs)
	if len(defs.Locations) != 1 || !strings.HasSuffix(defs.Locations[0].File, "Buttons.xml") {
		t.Errorf("definitions = %+v", defs)
	}

	if w := env.do(t, http.MethodGet, "/definitions/Nope", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("missing definition = %d, want 404", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodGet, "/search?q=button", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp SearchResponse
	decode(t, w, &resp)
	if len(resp.Results) == 0 {
		t.Error("expected search results")
	}
}

func TestSearchMissingQuery(t *testing.T) {
	env := newTestEnv(t, "")
	if w := env.do(t, http.MethodGet, "/search", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing q = %d, want 400", w.Code)
	}
}

func TestColorsAndMedia(t *testing.T) {
	env := newTestEnv(t, "")

	var colors struct {
		Colors []models.Color `json:"colors"`
	}
	decode(t, env.do(t, http.MethodGet, "/colors", nil, ""), &colors)
	if len(colors.Colors) != 1 || colors.Colors[0].Content != "FFFFFFFF" {
		t.Errorf("colors = %+v", colors.Colors)
	}

	var media NameListResponse
	decode(t, env.do(t, http.MethodGet, "/media", nil, ""), &media)
	if len(media.Items) != 1 || media.Items[0] != "icons/home.png" {
		t.Errorf("media = %v", media.Items)
	}

	var themes NameListResponse
	decode(t, env.do(t, http.MethodGet, "/themes", nil, ""), &themes)
	if len(themes.Items) != 0 {
		t.Errorf("themes = %v", themes.Items)
	}
}

func TestServeMedia(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodGet, "/media/icons/home.png", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("serve status = %d", w.Code)
	}
	if w.Body.String() != "png-bytes" {
		t.Errorf("body = %q", w.Body.String())
	}

	if w := env.do(t, http.MethodGet, "/media/icons/none.png", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("missing media = %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/media/icons", nil, ""); w.Code != http.StatusNotFound {
		t.Errorf("directory = %d, want 404", w.Code)
	}
}

func TestServeMedia_TraversalBlocked(t *testing.T) {
	env := newTestEnv(t, "")
	w := env.do(t, http.MethodGet, "/media/..%2F..%2Fxml%2FIncludes.xml", nil, "")
	if w.Code == http.StatusOK {
		t.Errorf("traversal should not serve a file, got %d", w.Code)
	}
}

func TestReload_PublishesEvents(t *testing.T) {
	env := newTestEnv(t, "")
	ch := env.broker.Subscribe("")
	defer env.broker.Unsubscribe(ch)

	testutil.WriteFile(t, env.root, "xml/Buttons.xml", `<includes><include name="Button"><control type="radiobutton"/></include></includes>`)
	w := env.do(t, http.MethodPost, "/reload", ReloadRequest{Path: "xml/Buttons.xml"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("reload status = %d, body = %s", w.Code, w.Body.String())
	}
	var res models.ReloadResult
	decode(t, w, &res)
	if len(res.Folders) != 1 || res.Folders[0] != "xml" {
		t.Errorf("reload result = %+v", res)
	}

	select {
	case msg := <-ch:
		if !strings.Contains(string(msg), "event: "+sse.EventIncludesUpdated) {
			t.Errorf("first event = %q", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("no event after reload")
	}

	var d IncludeDetail
	decode(t, env.do(t, http.MethodGet, "/folders/xml/includes/Home?resolve=true", nil, ""), &d)
	if !strings.Contains(d.Resolved, "radiobutton") {
		t.Errorf("reload not visible in resolution: %s", d.Resolved)
	}
}

func TestReload_BadRequests(t *testing.T) {
	env := newTestEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/reload", strings.NewReader("{"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/reload", ReloadRequest{Path: "../etc/passwd"}, ""); w.Code != http.StatusBadRequest {
		t.Errorf("traversal = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/reload", ReloadRequest{Path: "../../outside.xml"}, ""); w.Code != http.StatusBadRequest {
		t.Errorf("xml traversal = %d, want 400", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/reload", ReloadRequest{}, ""); w.Code != http.StatusBadRequest {
		t.Errorf("empty path = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	env := newTestEnv(t, "secret123")
	if w := env.do(t, http.MethodGet, "/folders", nil, "secret123"); w.Code != http.StatusOK {
		t.Errorf("authed = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	env := newTestEnv(t, "secret123")
	if w := env.do(t, http.MethodGet, "/folders", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	env := newTestEnv(t, "secret123")
	if w := env.do(t, http.MethodGet, "/folders", nil, "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	env := newTestEnv(t, "secret")
	if w := env.do(t, http.MethodGet, "/events", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	env := newTestEnv(t, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
}

func TestSSEEvents_QueryToken(t *testing.T) {
	env := newTestEnv(t, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?access_token=tok&folder=xml", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with query token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_QueryTokenOnlyForGet(t *testing.T) {
	env := newTestEnv(t, "tok")
	w := env.do(t, http.MethodPost, "/reload?access_token=tok", ReloadRequest{Path: "xml/Includes.xml"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("POST with query token = %d, want 401", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Error("missing WWW-Authenticate header")
	}
}
