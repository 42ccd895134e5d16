package keyword

// DefaultOverrides covers detection targets the registry does not index
// well: operator tokens, at-rules, pseudo-classes and multi-word phrases.
// Later entries win over earlier ones.
var DefaultOverrides = []Override{
	// JavaScript
	{OptionalChaining, "js-optional-chaining"},
	{NullishCoalescing, "js-nullish-coalescing"},
	{TopLevelAwait, "js-top-level-await"},
	{DynamicImport, "js-dynamic-import"},
	{"structuredclone", "structured-clone"},
	{"bigint", "js-bigint"},
	{"globalthis", "js-global-this"},
	{"import.meta", "js-import-meta"},
	{"finalizationregistry", "js-finalization-registry"},
	{"weakref", "js-weakref"},
	{"promise.allsettled", "js-promise-allsettled"},

	// CSS
	{":has", "has"},
	{"@layer", "cascade-layers"},
	{"@scope", "css-scope"},
	{"accent-color", "css-accent-color"},
	{"color-mix", "css-color-mix"},
	{"scroll-timeline", "css-scroll-timeline"},
	{":is", "css-is"},
	{":where", "css-where"},
	{"@container", "css-container-queries"},
	{"container-type", "css-container-queries"},
	{"@property", "css-properties-values-api"},
	{"@import layer", "css-cascade-layers"},
	{"@scroll-timeline", "css-scroll-linked-animations"},
	{"@counter-style", "css-counter-styles"},
	{"@font-feature-values", "css-font-feature-values"},
	{"@supports", "css-featurequeries"},
	{"@viewport", "css-viewport-rule"},
	{"@charset", "css-charset-rule"},

	// Web APIs
	{NavigatorBluetooth, "web-bluetooth"},
	{"navigator.credentials", "web-authentication"},
	{"navigator.share", "web-share"},
	{"file system access", "file-system-access"},
	{"notification", "notifications"},
	{"permissions api", "permissions-api"},
	{"webxr", "webxr"},
	{"webgpu", "webgpu"},

	// Operators and syntax
	{"??", "js-nullish-coalescing"},
	{"?.", "js-optional-chaining"},
	{"=>", "js-arrow-functions"},
	{"...", "js-spread-operator"},
	{"??=", "js-logical-assignment-operators"},
	{"||=", "js-logical-assignment-operators"},
	{"&&=", "js-logical-assignment-operators"},
	{"**", "js-exponentiation-operator"},
	{"async", "js-async-functions"},
	{"await", "js-top-level-await"},
}
