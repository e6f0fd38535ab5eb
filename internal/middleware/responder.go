package middleware

import "github.com/gin-gonic/gin"

// ErrorResponder writes err as the API error body and aborts the chain.
// The handler package supplies it so every rejection shares one format.
type ErrorResponder func(c *gin.Context, err error)
