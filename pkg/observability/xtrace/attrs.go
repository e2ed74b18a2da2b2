package xtrace

// SERVER span 属性名
const (
	AttrHTTPMethod               = "http.method"
	AttrHTTPURL                  = "http.url"
	AttrHTTPRoute                = "http.route"
	AttrHTTPScheme               = "http.scheme"
	AttrHTTPUserAgent            = "http.user_agent"
	AttrHTTPRequestContentLength = "http.request_content_length"
	AttrHTTPStatusCode           = "http.status_code"
	AttrNetHostName              = "net.host.name"
	AttrNetHostPort              = "net.host.port"

	AttrRPCSystem         = "rpc.system"
	AttrRPCService        = "rpc.service"
	AttrRPCMethod         = "rpc.method"
	AttrRPCGRPCStatusCode = "rpc.grpc.status_code"
)
