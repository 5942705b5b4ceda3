package enums

import "fmt"

// ProductCategory classifies catalog listings for the blending storefront.
type ProductCategory string

const (
	ProductCategoryTea       ProductCategory = "tea"
	ProductCategoryCoffee    ProductCategory = "coffee"
	ProductCategoryBlendBase ProductCategory = "blend_base"
	ProductCategoryAddOn     ProductCategory = "add_on"
	ProductCategoryAccessory ProductCategory = "accessory"
)

var validProductCategories = []ProductCategory{
	ProductCategoryTea,
	ProductCategoryCoffee,
	ProductCategoryBlendBase,
	ProductCategoryAddOn,
	ProductCategoryAccessory,
}

// String implements fmt.Stringer.
func (p ProductCategory) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductCategory.
func (p ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
