package models

import "sort"

// regions maps each of the seven administrative regions to its constituencies
var regions = map[string][]string{
	"Banjul": {
		"Banjul Central", "Banjul North", "Banjul South",
	},
	"Kanifing": {
		"Bakau", "Bundungka Kunda", "Jeshwang", "Latrikunda Sabiji",
		"Serekunda", "Serekunda West", "Tallinding Kunjang",
	},
	"West Coast": {
		"Brikama North", "Brikama South", "Busumbala", "Foni Bintang Karanai",
		"Foni Bondali", "Foni Brefet", "Foni Jarrol", "Foni Kansalla",
		"Kombo Central", "Kombo East", "Kombo North", "Kombo South",
		"Old Yundum", "Sanneh Mentereng",
	},
	"North Bank": {
		"Central Baddibu", "Illiasa", "Jokadu", "Lower Baddibu",
		"Lower Niumi", "Sabach Sanjal", "Upper Niumi",
	},
	"Lower River": {
		"Jarra Central", "Jarra East", "Jarra West",
		"Kiang Central", "Kiang East", "Kiang West",
	},
	"Central River": {
		"Janjanbureh", "Lower Fulladu West", "Lower Saloum", "Niamina Dankunku",
		"Niamina East", "Niamina West", "Niani", "Nianija", "Sami",
		"Upper Fulladu West", "Upper Saloum",
	},
	"Upper River": {
		"Basse", "Jimara", "Kantora", "Sandu", "Tumana", "Wuli East", "Wuli West",
	},
}

// Regions returns the region names in alphabetical order
func Regions() []string {
	names := make([]string, 0, len(regions))
	for name := range regions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Constituencies returns a copy of the constituencies of region, or nil if the region is unknown
func Constituencies(region string) []string {
	list, ok := regions[region]
	if !ok {
		return nil
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// IsRegion reports whether name is one of the seven regions
func IsRegion(name string) bool {
	_, ok := regions[name]
	return ok
}

// InRegion reports whether constituency belongs to region
func InRegion(region, constituency string) bool {
	for _, c := range regions[region] {
		if c == constituency {
			return true
		}
	}
	return false
}

// RegionCatalogue returns the full region to constituency mapping
func RegionCatalogue() map[string][]string {
	out := make(map[string][]string, len(regions))
	for name := range regions {
		out[name] = Constituencies(name)
	}
	return out
}
