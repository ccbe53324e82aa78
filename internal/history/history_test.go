package history_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/starford/fiche/internal/apperr"
	"github.com/starford/fiche/internal/history"
	"github.com/starford/fiche/internal/models"
	"github.com/starford/fiche/internal/testutil"
)

func doc(id string, date time.Time) models.Document {
	return models.Document{
		ID:       id,
		Title:    "Titre " + id,
		Subject:  models.SubjectMath,
		Color:    "#2980b9",
		Date:     date,
		HTML:     "<h1>Titre " + id + "</h1>",
		FontSize: 14,
		Type:     models.ModeCourse,
	}
}

func TestSaveAndGet(t *testing.T) {
	store := testutil.TestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	if err := store.Save(doc("a", now)); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Titre a" || got.Subject != models.SubjectMath || got.FontSize != 14 {
		t.Errorf("got = %+v", got)
	}
	if !got.Date.Equal(now) {
		t.Errorf("date = %v, want %v", got.Date, now)
	}
}

func TestGetMissing(t *testing.T) {
	store := testutil.TestStore(t)
	_, err := store.Get("nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestSaveDuplicateIDConflicts(t *testing.T) {
	store := testutil.TestStore(t)
	now := time.Now()
	if err := store.Save(doc("a", now)); err != nil {
		t.Fatal(err)
	}
	err := store.Save(doc("a", now))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want conflict", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := testutil.TestStore(t)
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		if err := store.Save(doc(fmt.Sprintf("d%d", i), base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}
	docs, err := store.List(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 3 {
		t.Fatalf("len = %d", len(docs))
	}
	if docs[0].ID != "d2" || docs[2].ID != "d0" {
		t.Errorf("order = %s, %s, %s", docs[0].ID, docs[1].ID, docs[2].ID)
	}
}

func TestSaveEvictsBeyondCap(t *testing.T) {
	store := testutil.TestStore(t)
	base := time.Now().UTC()
	for i := 0; i < history.MaxDocuments+5; i++ {
		if err := store.Save(doc(fmt.Sprintf("d%03d", i), base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}
	n, err := store.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != history.MaxDocuments {
		t.Errorf("count = %d, want %d", n, history.MaxDocuments)
	}
	// The oldest entries are the evicted ones.
	if _, err := store.Get("d000"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("oldest document should be evicted")
	}
	if _, err := store.Get(fmt.Sprintf("d%03d", history.MaxDocuments+4)); err != nil {
		t.Errorf("newest document missing: %v", err)
	}
}

func TestListFavoritesOnly(t *testing.T) {
	store := testutil.TestStore(t)
	now := time.Now().UTC()
	if err := store.Save(doc("a", now)); err != nil {
		t.Fatal(err)
	}
	fav := doc("b", now.Add(time.Minute))
	fav.Favorite = true
	if err := store.Save(fav); err != nil {
		t.Fatal(err)
	}

	docs, err := store.List(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != "b" {
		t.Errorf("favorites = %+v", docs)
	}
}

func TestToggleFavorite(t *testing.T) {
	store := testutil.TestStore(t)
	if err := store.Save(doc("a", time.Now())); err != nil {
		t.Fatal(err)
	}
	on, err := store.ToggleFavorite("a")
	if err != nil {
		t.Fatal(err)
	}
	if !on {
		t.Error("first toggle should set favorite")
	}
	off, err := store.ToggleFavorite("a")
	if err != nil {
		t.Fatal(err)
	}
	if off {
		t.Error("second toggle should clear favorite")
	}
	if _, err := store.ToggleFavorite("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestRenameAndUpdateHTML(t *testing.T) {
	store := testutil.TestStore(t)
	if err := store.Save(doc("a", time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := store.Rename("a", "Nouveau titre"); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateHTML("a", "<h1>Corrigé</h1>", "Corrigé"); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Corrigé" || got.HTML != "<h1>Corrigé</h1>" {
		t.Errorf("got = %+v", got)
	}
}

func TestDuplicate(t *testing.T) {
	store := testutil.TestStore(t)
	src := doc("a", time.Now().UTC())
	src.Favorite = true
	src.ParentID = "root"
	if err := store.Save(src); err != nil {
		t.Fatal(err)
	}

	dup, err := store.Duplicate("a", "a-copy", time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if dup.ID != "a-copy" {
		t.Errorf("id = %q", dup.ID)
	}
	if dup.Title != "Titre a (copie)" {
		t.Errorf("title = %q", dup.Title)
	}
	if dup.Favorite {
		t.Error("copy must not be a favorite")
	}
	if dup.ParentID != "root" {
		t.Errorf("parent = %q, want kept", dup.ParentID)
	}
}

func TestDeleteKeepsChildren(t *testing.T) {
	store := testutil.TestStore(t)
	now := time.Now().UTC()
	if err := store.Save(doc("parent", now)); err != nil {
		t.Fatal(err)
	}
	child := doc("child", now.Add(time.Minute))
	child.ParentID = "parent"
	child.Type = models.ModeQuiz
	if err := store.Save(child); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete("parent"); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get("child")
	if err != nil {
		t.Fatal(err)
	}
	if got.ParentID != "parent" {
		t.Errorf("child parent = %q, dangling reference should survive", got.ParentID)
	}
}

func TestImportMerge(t *testing.T) {
	store := testutil.TestStore(t)
	now := time.Now().UTC()
	existing := doc("keep", now)
	existing.Title = "Version locale"
	if err := store.Save(existing); err != nil {
		t.Fatal(err)
	}

	res, err := store.Import([]models.Document{
		doc("new1", now.Add(time.Minute)),
		{ID: "keep", Title: "Version importée", HTML: "<h1>x</h1>", Date: now},
		{ID: "", HTML: "<h1>sans id</h1>", Date: now},
		{ID: "no-html", Date: now},
		doc("new2", now.Add(2*time.Minute)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 2 || res.Skipped != 3 || res.Total != 3 {
		t.Errorf("result = %+v", res)
	}

	kept, err := store.Get("keep")
	if err != nil {
		t.Fatal(err)
	}
	if kept.Title != "Version locale" {
		t.Errorf("existing record should win, title = %q", kept.Title)
	}
}

func TestExportRoundTrip(t *testing.T) {
	store := testutil.TestStore(t)
	now := time.Now().UTC()
	if err := store.Save(doc("a", now)); err != nil {
		t.Fatal(err)
	}
	out, err := store.Export()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != "a" {
		t.Errorf("export = %+v", out)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	store := testutil.TestStore(t)

	empty, err := store.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(empty, history.Settings{}) {
		t.Errorf("initial settings = %+v, want zero", empty)
	}

	in := history.Settings{
		APIKey:          "sk-test",
		DefaultFontSize: 16,
		DefaultSubject:  models.SubjectFrench,
		Model:           history.ModelHaiku,
		CustomInstructions: map[models.Subject]string{
			models.SubjectMath: "Toujours détailler les calculs.",
		},
	}
	if err := store.SaveSettings(in); err != nil {
		t.Fatal(err)
	}
	out, err := store.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("settings = %+v, want %+v", out, in)
	}

	in.Model = history.ModelSonnet
	if err := store.SaveSettings(in); err != nil {
		t.Fatal(err)
	}
	out, _ = store.Settings()
	if out.Model != history.ModelSonnet {
		t.Errorf("model = %q after replace", out.Model)
	}
}
