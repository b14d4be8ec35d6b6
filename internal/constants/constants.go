package constants

import "time"

// Version of osdbinfos, sent as part of the user agent.
const Version = "0.5.0"

// DefaultEndpoint is the OpenSubtitles XML-RPC endpoint.
const DefaultEndpoint = "http://api.opensubtitles.org/xml-rpc"

// DefaultUserAgent identifies this client to OpenSubtitles.
const DefaultUserAgent = "OsdbInfos v" + Version

// DefaultLanguage is the language passed to LogIn.
const DefaultLanguage = "en"

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 10 * time.Second

// DefaultCacheTTL is how long lookup results are reused.
const DefaultCacheTTL = time.Hour
