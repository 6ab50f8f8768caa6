package product

import "strings"

// categoryKeywords maps name fragments to categories. Order matters:
// the first matching entry wins, so more specific fragments come first
// (e.g. "essig" before fruit terms so "Weinessig" is not wine).
var categoryKeywords = []struct {
	category Category
	terms    []string
}{
	{CategoryTiefkuehlkost, []string{"tiefkuehl", "tiefkühl", "tk-", "gefror"}},
	{CategoryReinigung, []string{"reinig", "spuelmittel", "spülmittel", "putz", "desinfekt", "seife"}},
	{CategoryGewuerze, []string{"gewuerz", "gewürz", "salz", "pfeffer", "oregano", "basilikum", "thymian", "rosmarin", "curry", "paprikapulver", "muskat", "zimt"}},
	{CategoryTrockenwaren, []string{"mehl", "reis", "nudel", "pasta", "spaghetti", "zucker", "essig", "oel", "öl", "olivenoel", "olivenöl", "konserve", "dose", "linsen"}},
	{CategoryFleisch, []string{"rind", "schwein", "kalb", "lamm", "huhn", "haehnchen", "hähnchen", "pute", "ente", "filet", "schnitzel", "steak", "hack", "wurst", "schinken", "speck"}},
	{CategoryFisch, []string{"fisch", "lachs", "thunfisch", "forelle", "kabeljau", "dorade", "zander", "garnele", "shrimp", "muschel"}},
	{CategoryMolkerei, []string{"milch", "kaese", "käse", "butter", "sahne", "joghurt", "quark", "rahm", "mozzarella", "parmesan", "gouda"}},
	{CategoryBackwaren, []string{"brot", "broetchen", "brötchen", "baguette", "croissant", "toast", "brezel", "kuchen", "teig"}},
	{CategoryGetraenke, []string{"wasser", "saft", "cola", "limonade", "bier", "wein", "sekt", "kaffee", "tee", "getraenk", "getränk"}},
	{CategoryObst, []string{"apfel", "aepfel", "äpfel", "banane", "orange", "zitrone", "limette", "birne", "traube", "beere", "erdbeer", "himbeer", "melone", "obst"}},
	{CategoryGemuese, []string{"tomate", "gurke", "salat", "zwiebel", "kartoffel", "paprika", "karotte", "moehre", "möhre", "zucchini", "aubergine", "spinat", "pilz", "champignon", "brokkoli", "kohl", "lauch", "gemuese", "gemüse"}},
}

// GuessCategory assigns a category from the product name using substring
// matching against the ordered keyword table. Unmatched names fall back
// to "sonstiges".
func GuessCategory(name string) Category {
	lower := strings.ToLower(name)
	for _, entry := range categoryKeywords {
		for _, term := range entry.terms {
			if strings.Contains(lower, term) {
				return entry.category
			}
		}
	}
	return CategorySonstiges
}
