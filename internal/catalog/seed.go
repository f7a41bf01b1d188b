package catalog

import "time"

// Seed is the fixed dataset shown when the remote store is unreachable.
type Seed struct {
	Users         []User
	Products      []Product
	Categories    []Category
	Locations     []Location
	Purposes      []Purpose
	Registrations []Registration
}

// DefaultSeed returns a fresh copy of the built-in fallback data.
func DefaultSeed() Seed {
	return Seed{
		Users: []User{
			{Name: "Jan Janssen", Role: RoleAdmin, BadgeCode: "BADGE001"},
			{Name: "Marie Peeters", Role: RoleUser},
			{Name: "An Wouters", Role: RoleUser, BadgeCode: "BADGE003"},
			{Name: "Piet Claes", Role: RoleAdmin},
			{Name: "Els Maes", Role: RoleUser, BadgeCode: "BADGE005"},
			{Name: "Tom Jacobs", Role: RoleUser},
		},
		Products: []Product{
			{ID: "1", Name: "Interflon Metal Clean spray 500ml", QRCode: "IFLS001", CategoryID: "1"},
			{ID: "2", Name: "Interflon Grease LT2 Lube shuttle 400gr", QRCode: "IFFL002", CategoryID: "1"},
			{ID: "3", Name: "Interflon Maintenance Kit", QRCode: "IFD003", CategoryID: "2"},
			{ID: "4", Name: "Interflon Food Lube spray 500ml", QRCode: "IFGR004", CategoryID: "1"},
			{ID: "5", Name: "Interflon Foam Cleaner spray 500ml", QRCode: "IFMC005", CategoryID: "2"},
			{ID: "6", Name: "Interflon Fin Super", QRCode: "IFMK006", CategoryID: "3"},
		},
		Categories: []Category{
			{ID: "1", Name: "Smeermiddelen"},
			{ID: "2", Name: "Reinigers"},
			{ID: "3", Name: "Onderhoud"},
		},
		Locations: []Location{
			"Warehouse groot boven",
			"Warehouse Interflon",
			"Warehouse klein beneden",
			"Onderhoud werkplaats",
			"Kantoor 1.1",
		},
		Purposes: []Purpose{"Presentatie", "Thuiswerken", "Reparatie", "Training", "Demonstratie"},
		Registrations: []Registration{
			{
				ID:        "1",
				User:      "Jan Janssen",
				Product:   "Interflon Metal Clean spray 500ml",
				Location:  "Warehouse Interflon",
				Purpose:   "Reparatie",
				Timestamp: time.Date(2025, 6, 15, 5, 41, 0, 0, time.UTC),
				Date:      "2025-06-15",
				Time:      "05:41",
				QRCode:    "IFLS001",
			},
			{
				ID:        "2",
				User:      "An Wouters",
				Product:   "Interflon Metal Clean spray 500ml",
				Location:  "Warehouse klein beneden",
				Purpose:   "Training",
				Timestamp: time.Date(2025, 6, 15, 5, 48, 0, 0, time.UTC),
				Date:      "2025-06-15",
				Time:      "05:48",
				QRCode:    "IFLS001",
			},
		},
	}
}
