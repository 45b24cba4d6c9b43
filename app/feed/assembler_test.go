package feed

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeSourceClient struct {
	mu           sync.Mutex
	personalized []RawItem
	pages        map[string]*Page // keyed by cursor
	sectionCalls int
	blockFetch   chan struct{} // when set, SectionItems waits before returning
}

func (f *fakeSourceClient) PersonalizedItems(ctx context.Context, limit int) ([]RawItem, error) {
	return f.personalized, nil
}

func (f *fakeSourceClient) SectionItems(ctx context.Context, sectionID, cursor string, limit int) (*Page, error) {
	f.mu.Lock()
	f.sectionCalls++
	block := f.blockFetch
	page, ok := f.pages[cursor]
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if !ok {
		return nil, fmt.Errorf("no page for cursor %q", cursor)
	}
	return page, nil
}

func validRaw(id, videoID string) RawItem {
	return RawItem{ID: id, VideoID: videoID, Title: "Item " + id, Author: "tester"}
}

func TestLoadCuratedFiltersInvalidItems(t *testing.T) {
	client := &fakeSourceClient{
		pages: map[string]*Page{
			"": {
				Items: []RawItem{
					validRaw("a", "dQw4w9WgXcQ"),
					{ID: "b", SourceURL: "https://youtu.be/short"},
					{ID: "c", SourceURL: "https://youtu.be/AAAAAAAAAAA"},
				},
			},
		},
	}

	a := NewAssembler(client, Source{Kind: SourceCurated, SectionID: "kr-trending"}, AssemblerOptions{})
	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	items := a.Items()
	if len(items) != 2 {
		t.Fatalf("Expected 2 items after validity filter, got %d", len(items))
	}
	if items[0].ID != "a" || items[1].ID != "c" {
		t.Errorf("Expected order [a c], got [%s %s]", items[0].ID, items[1].ID)
	}
	if items[1].VideoID != "AAAAAAAAAAA" {
		t.Errorf("Expected derived video id, got %q", items[1].VideoID)
	}
}

func TestLoadMergedPersonalizedFirst(t *testing.T) {
	client := &fakeSourceClient{
		personalized: []RawItem{
			validRaw("p1", "AAAAAAAAAAA"),
			validRaw("p2", "BBBBBBBBBBB"),
		},
		pages: map[string]*Page{
			"": {
				Items: []RawItem{
					validRaw("p2", "BBBBBBBBBBB"), // duplicate of a personalized item
					validRaw("r1", "CCCCCCCCCCC"),
				},
			},
		},
	}

	a := NewAssembler(client, Source{Kind: SourcePersonalized, SectionID: "recommended"}, AssemblerOptions{})
	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	items := a.Items()
	if len(items) != 3 {
		t.Fatalf("Expected 3 items after dedup, got %d", len(items))
	}
	expected := []string{"p1", "p2", "r1"}
	for i, id := range expected {
		if items[i].ID != id {
			t.Errorf("Expected item %d to be %s, got %s", i, id, items[i].ID)
		}
	}
}

func TestPaginationEndToEnd(t *testing.T) {
	// Page 0: 5 valid items, hasNext. Page 1: 3 items, one invalid.
	page0 := &Page{HasNext: true, NextCursor: "c1"}
	for i := 0; i < 5; i++ {
		page0.Items = append(page0.Items, validRaw(fmt.Sprintf("p0-%d", i), fmt.Sprintf("AAAAAAAAAA%d", i)))
	}
	page1 := &Page{
		Items: []RawItem{
			validRaw("p1-0", "BBBBBBBBBB0"),
			{ID: "p1-bad", SourceURL: "https://youtu.be/nope"},
			validRaw("p1-2", "BBBBBBBBBB2"),
		},
	}

	client := &fakeSourceClient{pages: map[string]*Page{"": page0, "c1": page1}}
	a := NewAssembler(client, Source{Kind: SourceCurated, SectionID: "s"}, AssemblerOptions{PageSize: 5, PrefetchDistance: 3})
	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// Index 1 is more than 3 from the end of 5; no fetch.
	fetched, err := a.MaybeFetchNext(context.Background(), 1)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if fetched {
		t.Error("Expected no fetch below the prefetch threshold")
	}

	// Index 2 is 3 from the end; fetch exactly once.
	fetched, err = a.MaybeFetchNext(context.Background(), 2)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !fetched {
		t.Fatal("Expected a fetch at the prefetch threshold")
	}

	items := a.Items()
	if len(items) != 7 {
		t.Fatalf("Expected 7 items (5 + 2 valid), got %d", len(items))
	}
	if items[5].ID != "p1-0" || items[6].ID != "p1-2" {
		t.Errorf("Expected appended order [p1-0 p1-2], got [%s %s]", items[5].ID, items[6].ID)
	}

	// No next page remains; threshold reached again is a no-op.
	fetched, _ = a.MaybeFetchNext(context.Background(), 6)
	if fetched {
		t.Error("Expected no fetch once the section is exhausted")
	}
}

func TestNoDuplicateInFlightFetch(t *testing.T) {
	page0 := &Page{HasNext: true, NextCursor: "c1",
		Items: []RawItem{validRaw("a", "AAAAAAAAAAA"), validRaw("b", "BBBBBBBBBBB")}}
	page1 := &Page{Items: []RawItem{validRaw("c", "CCCCCCCCCCC")}}

	block := make(chan struct{})
	client := &fakeSourceClient{pages: map[string]*Page{"": page0, "c1": page1}}
	a := NewAssembler(client, Source{Kind: SourceCurated, SectionID: "s"}, AssemblerOptions{PageSize: 2, PrefetchDistance: 3})
	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	client.mu.Lock()
	client.blockFetch = block
	callsBefore := client.sectionCalls
	client.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.MaybeFetchNext(context.Background(), 1)
		close(done)
	}()

	// Wait until the first fetch is in flight.
	for {
		client.mu.Lock()
		inFlight := client.sectionCalls > callsBefore
		client.mu.Unlock()
		if inFlight {
			break
		}
		time.Sleep(time.Millisecond)
	}

	// Reaching the threshold again must not issue a second fetch.
	fetched, err := a.MaybeFetchNext(context.Background(), 1)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if fetched {
		t.Error("Expected no fetch while one is already in flight")
	}

	close(block)
	<-done

	client.mu.Lock()
	calls := client.sectionCalls - callsBefore
	client.mu.Unlock()
	if calls != 1 {
		t.Errorf("Expected exactly 1 section call for the cursor, got %d", calls)
	}
}

func TestResolveStartOncePerToken(t *testing.T) {
	client := &fakeSourceClient{
		pages: map[string]*Page{"": {Items: []RawItem{
			validRaw("a", "AAAAAAAAAAA"),
			validRaw("b", "BBBBBBBBBBB"),
		}}},
	}
	a := NewAssembler(client, Source{Kind: SourceCurated, SectionID: "s"}, AssemblerOptions{})
	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	idx, ok := a.ResolveStart("b", "t1")
	if !ok || idx != 1 {
		t.Errorf("Expected index 1, got %d (ok=%v)", idx, ok)
	}

	// Same pair again is a no-op.
	if _, ok := a.ResolveStart("b", "t1"); ok {
		t.Error("Expected second resolution for the same pair to be a no-op")
	}

	// A new disambiguation token resolves again.
	if _, ok := a.ResolveStart("b", "t2"); !ok {
		t.Error("Expected resolution with a fresh token")
	}

	// Unknown ids fail silently.
	if _, ok := a.ResolveStart("missing", "t3"); ok {
		t.Error("Expected unknown start id to resolve to nothing")
	}
}

func TestTransformNormalizesHangul(t *testing.T) {
	// Decomposed Hangul (NFD) must come out composed.
	decomposed := "인기" // 인기 in Jamo form
	raw := validRaw("a", "AAAAAAAAAAA")
	raw.Title = decomposed

	item, ok := transform(raw)
	if !ok {
		t.Fatal("Expected transform to succeed")
	}
	if item.Title != "인기" {
		t.Errorf("Expected NFC-normalized title, got %q", item.Title)
	}
}

func TestTransformDerivesThumbnail(t *testing.T) {
	raw := validRaw("a", "dQw4w9WgXcQ")
	item, ok := transform(raw)
	if !ok {
		t.Fatal("Expected transform to succeed")
	}
	if item.ThumbnailURL != ThumbnailURL("dQw4w9WgXcQ") {
		t.Errorf("Expected derived thumbnail, got %q", item.ThumbnailURL)
	}
}
