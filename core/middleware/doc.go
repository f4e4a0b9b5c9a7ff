// Package middleware contains HTTP middleware for the status server.
//
// # Components
//
//   - auth: API key validation for every route except the listed public paths.
//   - rayid: assigns a unique Request ID (RayID) to every request, stores it in
//     the Fiber locals for logger.WithRayID and echoes it in the response headers.
package middleware
