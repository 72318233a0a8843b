package persistence

import "gorm.io/gorm"

// Repositories bundles every GORM repository over one connection
type Repositories struct {
	Products *GormProductRepository
	Variants *GormVariantRepository
	Mappings *GormCategoryMappingRepository
	Unmapped *GormUnmappedCategoryRepository
	Notices  *GormChangeNoticeRepository
	Entries  *GormCatalogEntryRepository
	Logs     *GormNotificationLogRepository
	Sourcing *GormSourcingRequestRepository
	Orders   *GormOrderMappingRepository
	Tokens   *GormTokenRepository
}

// NewRepositories creates every repository on db
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Products: NewGormProductRepository(db),
		Variants: NewGormVariantRepository(db),
		Mappings: NewGormCategoryMappingRepository(db),
		Unmapped: NewGormUnmappedCategoryRepository(db),
		Notices:  NewGormChangeNoticeRepository(db),
		Entries:  NewGormCatalogEntryRepository(db),
		Logs:     NewGormNotificationLogRepository(db),
		Sourcing: NewGormSourcingRequestRepository(db),
		Orders:   NewGormOrderMappingRepository(db),
		Tokens:   NewGormTokenRepository(db),
	}
}
