package dto

// RegisterRequest 用户注册请求
type RegisterRequest struct {
	Username   string  `json:"username" binding:"required,min=3,max=50"`
	Email      string  `json:"email" binding:"required,email"`
	FullName   string  `json:"full_name" binding:"required,min=1,max=100"`
	Password   string  `json:"password" binding:"required,min=6,max=72"`
	Avatar     *string `json:"avatar"`
	CoverImage *string `json:"cover_image"`
}

// LoginRequest 用户登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest 刷新令牌请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserInfo 用户公开信息
type UserInfo struct {
	ID         int64   `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	FullName   string  `json:"full_name"`
	Avatar     *string `json:"avatar"`
	CoverImage *string `json:"cover_image"`
}

// TokenData 登录/刷新成功返回的令牌数据
type TokenData struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
	User         UserInfo `json:"user"`
}
