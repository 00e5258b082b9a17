// Package clinic は動物病院の基幹リソース（飼い主・獣医師・ペット・予約・
// ワクチン・治療・タグ）のREST APIを提供する。
//
// 予約の作成・変更・キャンセルと治療記録の登録はドメインイベントを
// イベントバスに発行し、通知の生成は通知領域に委ねる。リマインダーの
// 走査対象（予約・ワクチン期限・治療経過確認）の取得もこのパッケージが
// 提供し、取得と送信済みフラグの更新を同一トランザクションで行う。
package clinic
