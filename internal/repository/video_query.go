package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// 列表查询默认值
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// 允许的排序字段白名单，其他字段一律回落到 created_at
var allowedSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"title":      true,
	"duration":   true,
}

// VideoQuery 视频目录查询参数
// 显式的 {筛选, 排序, 分页} 结构，统一翻译成数据库查询，
// 组合逻辑可以独立于 HTTP 层测试
type VideoQuery struct {
	OwnerID  int64
	Search   string
	SortBy   string
	SortDesc bool
	Page     int
	Limit    int
}

// Normalize 填默认值并约束非法参数
func (q *VideoQuery) Normalize() {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		q.Limit = DefaultLimit
	}
	q.SortBy = strings.TrimSpace(q.SortBy)
	if !allowedSortFields[q.SortBy] {
		q.SortBy = "created_at"
	}
	q.Search = strings.TrimSpace(q.Search)
}

// Offset 返回分页偏移量
func (q *VideoQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// OrderClause 返回排序子句
// 固定追加 id 升序作为次级排序键，排序字段相同的记录在任意分页下
// 都有确定的先后关系，翻页不会重复或漏掉记录
func (q *VideoQuery) OrderClause() string {
	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, id ASC", q.SortBy, dir)
}

// apply 把查询参数翻译到 gorm 查询上
// 子句顺序固定为：筛选 -> 排序 -> 偏移 -> 限量
func (q *VideoQuery) apply(db *gorm.DB) *gorm.DB {
	query := db.Where("owner_id = ?", q.OwnerID)
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	return query.Order(q.OrderClause()).Offset(q.Offset()).Limit(q.Limit)
}

// applyFilter 只应用筛选条件（计数用，不带排序分页）
func (q *VideoQuery) applyFilter(db *gorm.DB) *gorm.DB {
	query := db.Where("owner_id = ?", q.OwnerID)
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	return query
}
