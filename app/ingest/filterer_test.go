package ingest

import (
	"strings"
	"testing"

	"github.com/shortkki/shorts-feed/app/database"
	"github.com/shortkki/shorts-feed/app/sections"
)

func TestFiltererNoFilters(t *testing.T) {
	filterer := NewFilterer()
	items := []database.StoreItem{
		{Title: "김치찌개"},
		{Title: "광고 영상"},
	}

	result := filterer.Run(items, &sections.Config{})
	if len(result) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(result))
	}
	for _, item := range result {
		if item.IsFiltered {
			t.Errorf("Expected item %q not to be filtered without filters", item.Title)
		}
	}
}

func TestFiltererExcludes(t *testing.T) {
	filterer := NewFilterer()
	config := &sections.Config{
		Filters: []sections.ConfigFilter{
			{Field: "title", Excludes: []string{"광고", "협찬"}},
		},
	}

	items := []database.StoreItem{
		{Title: "김치찌개 만들기"},
		{Title: "[광고] 신제품 리뷰"},
		{Title: "협찬 받은 영상"},
	}

	result := filterer.Run(items, config)
	if result[0].IsFiltered {
		t.Error("Expected first item to pass")
	}
	if !result[1].IsFiltered {
		t.Error("Expected '광고' item to be filtered")
	}
	if !result[2].IsFiltered {
		t.Error("Expected '협찬' item to be filtered")
	}
	if !strings.Contains(result[1].FilterReason, "광고") {
		t.Errorf("Expected filter reason to name the pattern, got %q", result[1].FilterReason)
	}
}

func TestFiltererIncludes(t *testing.T) {
	filterer := NewFilterer()
	config := &sections.Config{
		Filters: []sections.ConfigFilter{
			{Field: "tags", Includes: []string{"한식", "분식"}},
		},
	}

	items := []database.StoreItem{
		{Title: "김치찌개", Tags: []string{"한식"}},
		{Title: "파스타", Tags: []string{"양식"}},
	}

	result := filterer.Run(items, config)
	if result[0].IsFiltered {
		t.Error("Expected '한식' item to pass the include filter")
	}
	if !result[1].IsFiltered {
		t.Error("Expected '양식' item to be filtered by the include filter")
	}
}

func TestFiltererCaseInsensitive(t *testing.T) {
	filterer := NewFilterer()
	config := &sections.Config{
		Filters: []sections.ConfigFilter{
			{Field: "author", Excludes: []string{"spambot"}},
		},
	}

	items := []database.StoreItem{
		{Title: "영상", Author: "SpamBot Kitchen"},
	}

	result := filterer.Run(items, config)
	if !result[0].IsFiltered {
		t.Error("Expected case-insensitive match to filter the item")
	}
}

func TestFiltererUnknownField(t *testing.T) {
	filterer := NewFilterer()
	config := &sections.Config{
		Filters: []sections.ConfigFilter{
			{Field: "unknown", Excludes: []string{"광고"}},
		},
	}

	items := []database.StoreItem{{Title: "광고 영상"}}
	result := filterer.Run(items, config)
	if result[0].IsFiltered {
		t.Error("Expected unknown field filter to match nothing")
	}
}
