package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/workshop-scheduler/pkg/app"
)

var r http.Handler

func init() {
	gin.SetMode(gin.ReleaseMode)

	a, err := app.New("")
	if err != nil {
		panic(fmt.Errorf("startup: %w", err))
	}
	r = a.Engine
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
