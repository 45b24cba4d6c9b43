package ingest

import (
	"fmt"
	"strings"

	"github.com/shortkki/shorts-feed/app/database"
	"github.com/shortkki/shorts-feed/app/sections"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

func (f *Filterer) Run(items []database.StoreItem, config *sections.Config) []database.StoreItem {
	if len(config.Filters) == 0 {
		return items
	}

	filtered := make([]database.StoreItem, 0, len(items))
	for _, item := range items {
		isFiltered, filterReason := f.applyFilters(item, config.Filters)
		item.IsFiltered = isFiltered
		item.FilterReason = filterReason
		filtered = append(filtered, item)
	}

	return filtered
}

func (f *Filterer) applyFilters(item database.StoreItem, filters []sections.ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(item, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return true, fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(item database.StoreItem, field string) string {
	switch field {
	case "title":
		return item.Title
	case "author":
		return item.Author
	case "link":
		return item.SourceURL
	case "tags":
		return strings.Join(item.Tags, " ")
	default:
		return ""
	}
}
