package http

// registerV1Routes sets up the JSON mirror of the dashboard views
// Groups: /api/v1 (live views), /api/v1/history (archive)
func (s *Server) registerV1Routes() {
	v1 := s.engine.Group("/api/v1")
	v1.Use(apiVersionMiddleware())
	if s.cfg.BearerToken != "" {
		v1.Use(bearerAuthMiddleware(s.cfg.BearerToken))
	}

	v1.GET("/intensity", s.handleV1Intensity)
	v1.GET("/generation", s.handleV1Generation)

	history := v1.Group("/history")
	{
		history.GET("/intensity", s.handleV1IntensityHistory)
	}
}
