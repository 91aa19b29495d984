package main

import "time"

// sampleMedicines returns the demo catalogue. Dates are relative to now so a
// fresh seed always has valid, expiring and low-stock batches.
func sampleMedicines(now time.Time) []seedMedicine {
	month := func(n int) time.Time { return now.AddDate(0, n, 0).Truncate(24 * time.Hour) }
	return []seedMedicine{
		{
			Name: "Paracetamol 500mg", GenericName: "Paracetamol", Brand: "MedPlus", Category: "tablet",
			Dosage: "500mg", Strength: "500mg", Manufacturer: "MedPlus Pharma", BatchNumber: "BATCH001",
			ManufacturingDate: month(-6), ExpiryDate: month(18),
			StockCurrent: 150, StockMinimum: 30, StockMaximum: 500,
			PurchasePrice: 1.5, SellingPrice: 2.0, MRP: 2.5,
			Description: "Pain relief tablet for headaches and fever", PrescriptionRequired: true,
		},
		{
			Name: "Amoxicillin 250mg", GenericName: "Amoxicillin", Brand: "HealWell", Category: "capsule",
			Dosage: "250mg", Strength: "250mg", Manufacturer: "HealWell Labs", BatchNumber: "BATCH002",
			ManufacturingDate: month(-4), ExpiryDate: month(20),
			StockCurrent: 100, StockMinimum: 20, StockMaximum: 400,
			PurchasePrice: 3.0, SellingPrice: 3.5, MRP: 4.0,
			Description: "Antibiotic for bacterial infections", SideEffects: []string{"nausea", "rash"}, PrescriptionRequired: true,
		},
		{
			Name: "Cough Syrup", GenericName: "Dextromethorphan", Brand: "SyrupCare", Category: "syrup",
			Dosage: "10ml", Strength: "10ml", Manufacturer: "SyrupCare Inc.", BatchNumber: "BATCH003",
			ManufacturingDate: month(-10), ExpiryDate: now.AddDate(0, 0, 20),
			StockCurrent: 80, StockMinimum: 15, StockMaximum: 300,
			PurchasePrice: 25.0, SellingPrice: 30.0, MRP: 35.0,
			Description: "Relief from cough and cold symptoms",
		},
		{
			Name: "Hydrocortisone Cream 1%", GenericName: "Hydrocortisone", Brand: "DermAid", Category: "cream",
			Dosage: "Apply thin layer", Strength: "1%", Manufacturer: "DermAid Pharma", BatchNumber: "BATCH004",
			ManufacturingDate: month(-3), ExpiryDate: month(24),
			StockCurrent: 8, StockMinimum: 10, StockMaximum: 200,
			PurchasePrice: 40.0, SellingPrice: 45.0, MRP: 50.0,
			Description: "Anti-inflammatory topical cream",
		},
		{
			Name: "Insulin Injection", GenericName: "Insulin", Brand: "GlucoCare", Category: "injection",
			Dosage: "Subcutaneous injection", Strength: "100 IU/ml", Manufacturer: "GlucoCare Ltd.", BatchNumber: "BATCH005",
			ManufacturingDate: month(-2), ExpiryDate: month(10),
			StockCurrent: 60, StockMinimum: 10, StockMaximum: 150,
			PurchasePrice: 300, SellingPrice: 350, MRP: 400,
			Description: "For diabetes management", PrescriptionRequired: true,
		},
		{
			Name: "Vitamin D Drops", GenericName: "Vitamin D3", Brand: "Sunshine", Category: "drops",
			Dosage: "1ml daily", Strength: "1000 IU/ml", Manufacturer: "Sunshine Pharma", BatchNumber: "BATCH006",
			ManufacturingDate: month(-5), ExpiryDate: month(14),
			StockCurrent: 70, StockMinimum: 15, StockMaximum: 250,
			PurchasePrice: 150, SellingPrice: 180, MRP: 200,
			Description: "Vitamin D supplement for bone health",
		},
		{
			Name: "Calcium Carbonate Powder", GenericName: "Calcium Carbonate", Brand: "BoneStrong", Category: "powder",
			Dosage: "One scoop daily", Strength: "500mg", Manufacturer: "BoneStrong Labs", BatchNumber: "BATCH007",
			ManufacturingDate: month(-7), ExpiryDate: month(12),
			StockCurrent: 0, StockMinimum: 20, StockMaximum: 500,
			PurchasePrice: 50, SellingPrice: 60, MRP: 70,
			Description: "Calcium supplement for bone health",
		},
		{
			Name: "Azithromycin 250mg", GenericName: "Azithromycin", Brand: "AntiBex", Category: "tablet",
			Dosage: "250mg", Strength: "250mg", Manufacturer: "AntiBex Pharma", BatchNumber: "BATCH008",
			ManufacturingDate: month(-1), ExpiryDate: month(23),
			StockCurrent: 100, StockMinimum: 25, StockMaximum: 400,
			PurchasePrice: 10, SellingPrice: 12, MRP: 15,
			Description: "Antibiotic for respiratory infections", PrescriptionRequired: true,
		},
		{
			Name: "Ibuprofen 200mg", GenericName: "Ibuprofen", Brand: "PainAway", Category: "tablet",
			Dosage: "200mg", Strength: "200mg", Manufacturer: "PainAway Labs", BatchNumber: "BATCH009",
			ManufacturingDate: month(-3), ExpiryDate: month(21),
			StockCurrent: 130, StockMinimum: 30, StockMaximum: 600,
			PurchasePrice: 2.0, SellingPrice: 2.5, MRP: 3.0,
			Description: "Anti-inflammatory pain reliever", PrescriptionRequired: true,
		},
	}
}
