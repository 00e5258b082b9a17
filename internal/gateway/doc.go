// Package gateway はWebSocketによるリアルタイム通知配信の
// トランスポート層を提供する。ユーザーごとのライブ接続を
// Connection Registryで管理し、Dispatcherが通知レコードを
// 宛先種別（user / role / broadcast）に従って各接続へプッシュする。
package gateway
