package partition

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// tableFile mirrors the on-disk partition table:
//
//	partitions:
//	  - year: "2020"
//	    page_ranges: "30-40,40-50"
//	  - year: "2024"
//	    page_ranges: ""
type tableFile struct {
	Partitions []tableEntry `yaml:"partitions"`
}

type tableEntry struct {
	Year       string `yaml:"year"`
	PageRanges string `yaml:"page_ranges"`
}

// LoadTable reads the partition table from a YAML file, preserving the
// configured key order.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read partition table %s: %w", path, err)
	}

	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Table{}, fmt.Errorf("parse partition table %s: %w", path, err)
	}
	if len(file.Partitions) == 0 {
		return Table{}, fmt.Errorf("partition table %s lists no partitions", path)
	}

	table := Table{Ranges: make(map[string]string, len(file.Partitions))}
	for _, entry := range file.Partitions {
		if entry.Year == "" {
			return Table{}, fmt.Errorf("partition table %s has an entry with no year", path)
		}
		table.Keys = append(table.Keys, entry.Year)
		table.Ranges[entry.Year] = entry.PageRanges
	}
	return table, nil
}
