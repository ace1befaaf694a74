package dto

import "time"

// UserResponse is the body of GET /user. The password hash is never serialized.
type UserResponse struct {
	ID        string       `json:"id"`
	Email     string       `json:"email"`
	CreatedAt time.Time    `json:"createdAt"`
	Settings  UserSettings `json:"settings"`
}

type UserSettings struct {
	BaseCurrency string `json:"baseCurrency"`
}

// UpdateUserSettingReq は PUT /user/setting のリクエストボディです。
type UpdateUserSettingReq struct {
	BaseCurrency string `json:"baseCurrency" binding:"required,len=3"`
}
