package dto

type LoginDTO struct {
	Username string `json:"username" validate:"required,min=2,max=64,username"`
	Password string `json:"password" validate:"required,min=4"`
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TokensDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type MeDTO struct {
	ID          uint64   `json:"id"`
	Username    string   `json:"username"`
	FullName    string   `json:"full_name"`
	Role        string   `json:"role"`
	IsSuperuser bool     `json:"is_superuser"`
	Emergency   bool     `json:"emergency"`
	Permissions []string `json:"permissions"`
}
