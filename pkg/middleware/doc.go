// Package middleware はpetchain-apiの各HTTPサーフェスで共有する
// Ginミドルウェア（JWT認証、役割チェック、CORS、パニック回復）を提供する。
package middleware
