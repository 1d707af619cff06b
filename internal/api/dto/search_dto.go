package dto

// SearchRequest 视频全文搜索请求
type SearchRequest struct {
	Query string `form:"q" binding:"required,min=1,max=200"`
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
}
