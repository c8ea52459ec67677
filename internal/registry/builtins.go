package registry

// DefaultBuiltins lists the modules compiled into a stock CPython 3
// interpreter (sys.builtin_module_names). It is used when no interpreter is
// queried.
var DefaultBuiltins = []string{
	"_abc", "_ast", "_bisect", "_blake2", "_codecs", "_collections",
	"_contextvars", "_csv", "_datetime", "_elementtree", "_functools",
	"_heapq", "_imp", "_io", "_locale", "_md5", "_operator", "_pickle",
	"_posixsubprocess", "_random", "_sha1", "_sha2", "_sha256", "_sha3",
	"_sha512", "_signal", "_socket", "_sre", "_stat", "_statistics",
	"_string", "_struct", "_symtable", "_thread", "_tokenize",
	"_tracemalloc", "_typing", "_warnings", "_weakref", "array", "atexit",
	"binascii", "builtins", "cmath", "errno", "faulthandler", "fcntl",
	"gc", "grp", "itertools", "marshal", "math", "posix", "pwd", "pyexpat",
	"select", "sys", "syslog", "time", "unicodedata", "xxsubtype", "zlib",
}
