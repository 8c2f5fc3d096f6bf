package ws

// query parameters for the progress feed connection
type ConnectParams struct {
	ProjectID string `form:"project_id" binding:"required"`
	Token     string `form:"token" binding:"required"`
}
