package product

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuessCategory(t *testing.T) {
	tests := []struct {
		name string
		want Category
	}{
		{"Rinderfilet", CategoryFleisch},
		{"Schweineschnitzel", CategoryFleisch},
		{"Hähnchenbrust", CategoryFleisch},
		{"Lachsfilet", CategoryFleisch}, // "filet" wins before fish terms
		{"Thunfisch in Öl", CategoryTrockenwaren},
		{"Forelle", CategoryFisch},
		{"Tomaten", CategoryGemuese},
		{"Rote Paprika", CategoryGemuese},
		{"Paprikapulver edelsüß", CategoryGewuerze},
		{"Äpfel Elstar", CategoryObst},
		{"Vollmilch 3.5%", CategoryMolkerei},
		{"Gouda gerieben", CategoryMolkerei},
		{"Weizenmehl Type 405", CategoryTrockenwaren},
		{"Mineralwasser still", CategoryGetraenke},
		{"Apfelsaft", CategoryGetraenke}, // drink terms win before fruit terms
		{"Orangensaft", CategoryGetraenke},
		{"Baguette", CategoryBackwaren},
		{"Meersalz grob", CategoryGewuerze},
		{"TK-Pommes", CategoryTiefkuehlkost},
		{"Spülmittel Zitrone", CategoryReinigung},
		{"Alufolie 45cm", CategorySonstiges},
		{"", CategorySonstiges},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GuessCategory(tt.name))
		})
	}
}

func TestGuessCategoryIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, CategoryFleisch, GuessCategory("RINDERGULASCH"))
	assert.Equal(t, CategoryFleisch, GuessCategory("rindergulasch"))
}
