package crafting

import (
	"testing"

	"github.com/osse101/cosmos-agent/internal/catalog"
	"github.com/osse101/cosmos-agent/internal/domain"
)

// deepCatalog builds a chain where item i needs two of item i-1
func deepCatalog(depth int) *catalog.Catalog {
	recipes := make([]domain.Recipe, 0, depth)
	for i := 2; i <= depth; i++ {
		recipes = append(recipes, domain.Recipe{
			Output: domain.ItemID(i),
			Inputs: []domain.RecipeInput{in(domain.ItemID(i-1), 2)},
		})
	}
	return catalog.New(recipes)
}

func BenchmarkResolve_Furniture(b *testing.B) {
	cat := furnitureCatalog()
	inv := domain.Inventory{itemWood: 1000, itemStone: 100}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Resolve(itemDining, 10, inv, cat)
	}
}

func BenchmarkResolve_DeepChain(b *testing.B) {
	cat := deepCatalog(8)
	inv := domain.Inventory{1: 1 << 10}
	r := NewResolver(WithMaxSteps(0))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Resolve(8, 1, inv, cat)
	}
}

func BenchmarkCraftable(b *testing.B) {
	cat := furnitureCatalog()
	inv := domain.Inventory{itemWood: 40, itemStone: 3, itemPlank: 7}
	names := testNames()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Craftable(inv, cat, names)
	}
}
