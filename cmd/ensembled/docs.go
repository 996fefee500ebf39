package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           ensembled API
// @version         1.0
// @description     HTTP API for multi-model response synthesis with consensus strategies.
//
// @contact.name   ensembled maintainers
// @contact.url    https://github.com/your-org/ensembled
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
