package enums

// ProductStatus controls catalog visibility.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusArchived ProductStatus = "archived"
	ProductStatusDeleted  ProductStatus = "deleted"
)

var productStatuses = newSet("product status",
	ProductStatusActive, ProductStatusDraft, ProductStatusArchived, ProductStatusDeleted)

func (s ProductStatus) IsValid() bool { return productStatuses.has(s) }

// Visible reports whether shoppers can see the product.
func (s ProductStatus) Visible() bool { return s == ProductStatusActive }

func ParseProductStatus(value string) (ProductStatus, error) {
	return productStatuses.parse(value)
}

// ProductSort enumerates the supported catalog orderings.
type ProductSort string

const (
	ProductSortNewest    ProductSort = "newest"
	ProductSortPriceAsc  ProductSort = "price_asc"
	ProductSortPriceDesc ProductSort = "price_desc"
	ProductSortRating    ProductSort = "rating"
	ProductSortPopular   ProductSort = "popular"
	ProductSortName      ProductSort = "name"
)

var productSorts = newSet("sort",
	ProductSortNewest, ProductSortPriceAsc, ProductSortPriceDesc, ProductSortRating, ProductSortPopular, ProductSortName)

// ParseProductSort converts raw input into a ProductSort, defaulting to newest.
func ParseProductSort(value string) (ProductSort, error) {
	if value == "" {
		return ProductSortNewest, nil
	}
	return productSorts.parse(value)
}
