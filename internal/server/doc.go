// Package server hosts the Fiber HTTP service and the middleware chain shared by
// every route: panic recovery, request IDs and JSON error rendering. Route
// handlers live in the routes subpackage and attach themselves to the *fiber.App
// returned by NewApp, so keep exports narrow and accept explicit dependencies.
package server
