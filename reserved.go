package accounts

// defaultReservedPaths are system paths that would be ambiguous with
// application routes. A Config can extend the list but these always apply.
var defaultReservedPaths = []string{
	"admin",
	"api",
	"assets",
	"dashboard",
	"files",
	"groups",
	"help",
	"hooks",
	"issues",
	"merge_requests",
	"notes",
	"profile",
	"projects",
	"public",
	"repositories",
	"robots.txt",
	"s",
	"search",
	"services",
	"snippets",
	"teams",
	"u",
	"unsubscribes",
	"users",
}
