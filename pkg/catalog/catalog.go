// Package catalog reads the crawl work domain: the category map for the
// discovery stage and the link results for the download stage.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	errs "catalogscraper/pkg/errors"
	"catalogscraper/pkg/models"
)

// CategoryMap is group (gender) -> subgroup (category) -> category page URL
type CategoryMap map[string]map[string]string

// LinkResults is group -> subgroup -> product URLs, as written by discovery
type LinkResults map[string]map[string][]string

// LoadCategoryMap reads a category map JSON file
func LoadCategoryMap(path string) (CategoryMap, error) {
	var m CategoryMap
	if err := readJSON(path, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadLinkResults reads a link-results JSON file
func LoadLinkResults(path string) (LinkResults, error) {
	var r LinkResults
	if err := readJSON(path, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeConfig, "", fmt.Errorf("read %s: %w", path, err))
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errs.Wrap(errs.ErrorTypeParsing, "", fmt.Errorf("decode %s: %w", path, err))
	}
	return nil
}

// DiscoveryItems builds one work item per category, sorted by key.
// Blank URLs are dropped.
func (m CategoryMap) DiscoveryItems() []models.WorkItem {
	var items []models.WorkItem
	for group, subs := range m {
		for sub, u := range subs {
			if strings.TrimSpace(u) == "" {
				continue
			}
			items = append(items, models.WorkItem{
				Key: models.Key{Group: group, Subgroup: sub},
				URL: strings.TrimSpace(u),
			})
		}
	}
	sortItems(items)
	return items
}

// DownloadItems builds one work item per distinct product URL within each
// category, sorted by key. The key group is "group/subgroup" and the asset
// folder is [group, subgroup].
func (r LinkResults) DownloadItems() []models.WorkItem {
	var items []models.WorkItem
	for group, subs := range r {
		for sub, urls := range subs {
			seen := make(map[string]bool, len(urls))
			for _, u := range urls {
				u = strings.TrimSpace(u)
				if u == "" || seen[u] {
					continue
				}
				seen[u] = true
				items = append(items, models.WorkItem{
					Key:    models.Key{Group: group + "/" + sub, Subgroup: u},
					URL:    u,
					Folder: []string{group, sub},
				})
			}
		}
	}
	sortItems(items)
	return items
}

// Count returns the number of product URLs
func (r LinkResults) Count() int {
	n := 0
	for _, subs := range r {
		for _, urls := range subs {
			n += len(urls)
		}
	}
	return n
}

func sortItems(items []models.WorkItem) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i].Key, items[j].Key
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Subgroup < b.Subgroup
	})
}
