// Package notification は通知のストアとREST API、リマインダー走査を提供する。
//
// ドメインイベントをイベントバスから購読し、イベント種別ごとの
// 組み立て規則に従って通知レコードを生成・保存する。保存後、宛先に
// ライブ接続があればゲートウェイ経由で即時配信し、配信日時を記録する。
// オフラインのユーザーはREST API経由で未読通知を取得する。
package notification
