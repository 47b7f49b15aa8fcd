package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"dorbot/internal/models"
	"dorbot/internal/service"
)

func (d *Dispatcher) cmdAdminMenu(ctx context.Context, sender, _ string) error {
	p := d.cfg.Prefix
	text := fmt.Sprintf(`👑 *Menu Admin*

💰 *Saldo:*
%saddsaldo - Tambah saldo user
%sdelsaldo - Kurangi/reset saldo user
%sresetsaldo <nomor> - Reset saldo ke 0
%sceksaldosistem - Cek saldo deposit sistem

👥 *User:*
%sstats - Statistik sistem
%stopuser - Top 10 user by saldo
%scariuser <kata> - Cari user
%sbroadcast <pesan> - Kirim ke semua user

🧾 *Transaksi:*
%spending - Transaksi pending
%scektrx <trx_id> - Cek status transaksi

📦 *Paket:*
%slistpaket - Daftar semua paket
%saddpaket <data> - Tambah/ubah paket
%sdelpaket <kode> - Hapus paket
%stogglepaket <kode> - Aktif/nonaktifkan paket`,
		p, p, p, p, p, p, p, p, p, p, p, p, p, p)
	return d.send(ctx, sender, text)
}

func (d *Dispatcher) cmdStartAddSaldo(ctx context.Context, sender, _ string) error {
	d.states.Set(sender, State{Kind: KindAddSaldoTarget})
	return d.send(ctx, sender, "💰 *Tambah Saldo*\n\nMasukkan nomor user:\nContoh: 08123456789\n\nKetik *batal* untuk membatalkan")
}

func (d *Dispatcher) handleAddSaldoTarget(ctx context.Context, sender, input string) error {
	target := NormalizeNumber(input)
	if target == "" {
		return d.send(ctx, sender, "❌ Nomor tidak valid. Masukkan ulang, atau ketik *batal*")
	}

	user, err := d.ledger.GetOrCreate(ctx, target)
	if err != nil {
		return err
	}

	d.states.Set(sender, State{
		Kind:           KindAddSaldoAmount,
		TargetNumber:   target,
		CurrentBalance: user.Saldo,
	})
	return d.send(ctx, sender, fmt.Sprintf("📞 Nomor: %s\n💳 Saldo saat ini: Rp. %s\n\nMasukkan jumlah saldo yang ditambahkan:\nContoh: 10000\n\nKetik *batal* untuk membatalkan",
		target, rupiah(user.Saldo)))
}

func (d *Dispatcher) handleAddSaldoAmount(ctx context.Context, sender, input string, st State) error {
	amount, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil || amount <= 0 {
		return d.send(ctx, sender, "❌ Jumlah tidak valid. Masukkan angka lebih dari 0, atau ketik *batal*")
	}

	st.Kind = KindAddSaldoConfirm
	st.Amount = amount
	st.NewBalance = st.CurrentBalance + amount
	d.states.Set(sender, st)
	return d.send(ctx, sender, fmt.Sprintf("💰 *Konfirmasi Tambah Saldo*\n\n📞 Nomor: %s\n💵 Jumlah: Rp. %s\n💳 Saldo sekarang: Rp. %s\n💳 Saldo setelah: Rp. %s\n\nKetik *ya* untuk melanjutkan\nKetik *batal* untuk membatalkan",
		st.TargetNumber, rupiah(amount), rupiah(st.CurrentBalance), rupiah(st.NewBalance)))
}

func (d *Dispatcher) handleAddSaldoConfirm(ctx context.Context, sender, input string, st State) error {
	if !strings.EqualFold(strings.TrimSpace(input), "ya") {
		return d.send(ctx, sender, "Ketik *ya* untuk melanjutkan\nKetik *batal* untuk membatalkan")
	}
	d.states.Clear(sender)

	user, err := d.ledger.Adjust(ctx, st.TargetNumber, st.Amount, service.AdjustAdd)
	if err != nil {
		return err
	}

	d.send(ctx, st.TargetNumber, fmt.Sprintf("💰 *Saldo Ditambahkan!*\n\n💵 Jumlah: Rp. %s\n💳 Saldo sekarang: Rp. %s\n\nKetik *%sbeli* untuk membeli paket",
		rupiah(st.Amount), rupiah(user.Saldo), d.cfg.Prefix))
	return d.send(ctx, sender, fmt.Sprintf("✅ Saldo %s berhasil ditambahkan Rp. %s\n💳 Saldo sekarang: Rp. %s",
		st.TargetNumber, rupiah(st.Amount), rupiah(user.Saldo)))
}

func (d *Dispatcher) cmdStartDeleteSaldo(ctx context.Context, sender, _ string) error {
	d.states.Set(sender, State{Kind: KindDeleteSaldoTarget})
	return d.send(ctx, sender, "🗑️ *Kurangi Saldo*\n\nMasukkan nomor user:\nContoh: 08123456789\n\nKetik *batal* untuk membatalkan")
}

func (d *Dispatcher) handleDeleteSaldoTarget(ctx context.Context, sender, input string) error {
	target := NormalizeNumber(input)
	if target == "" {
		return d.send(ctx, sender, "❌ Nomor tidak valid. Masukkan ulang, atau ketik *batal*")
	}

	user, err := d.ledger.Get(ctx, target)
	if err != nil {
		return err
	}
	if user == nil {
		return d.send(ctx, sender, "❌ User "+target+" tidak ditemukan.\nMasukkan ulang, atau ketik *batal*")
	}

	d.states.Set(sender, State{
		Kind:           KindDeleteSaldoAmount,
		TargetNumber:   target,
		CurrentBalance: user.Saldo,
	})
	return d.send(ctx, sender, fmt.Sprintf("📞 Nomor: %s\n💳 Saldo saat ini: Rp. %s\n\nMasukkan jumlah yang dikurangi, atau ketik *hapus* untuk reset ke 0:\n\nKetik *batal* untuk membatalkan",
		target, rupiah(user.Saldo)))
}

func (d *Dispatcher) handleDeleteSaldoAmount(ctx context.Context, sender, input string, st State) error {
	input = strings.TrimSpace(input)

	if strings.EqualFold(input, "hapus") {
		st.Operation = "reset"
		st.Amount = st.CurrentBalance
		st.NewBalance = 0
	} else {
		amount, err := strconv.ParseInt(input, 10, 64)
		if err != nil || amount <= 0 {
			return d.send(ctx, sender, "❌ Jumlah tidak valid. Masukkan angka lebih dari 0, ketik *hapus*, atau *batal*")
		}
		if amount > st.CurrentBalance {
			return d.send(ctx, sender, fmt.Sprintf("❌ Jumlah melebihi saldo user (Rp. %s).\nMasukkan ulang, atau ketik *batal*", rupiah(st.CurrentBalance)))
		}
		st.Operation = "subtract"
		st.Amount = amount
		st.NewBalance = st.CurrentBalance - amount
	}

	st.Kind = KindDeleteSaldoConfirm
	d.states.Set(sender, st)
	return d.send(ctx, sender, fmt.Sprintf("🗑️ *Konfirmasi Kurangi Saldo*\n\n📞 Nomor: %s\n💵 Dikurangi: Rp. %s\n💳 Saldo sekarang: Rp. %s\n💳 Saldo setelah: Rp. %s\n\nKetik *ya* untuk melanjutkan\nKetik *batal* untuk membatalkan",
		st.TargetNumber, rupiah(st.Amount), rupiah(st.CurrentBalance), rupiah(st.NewBalance)))
}

func (d *Dispatcher) handleDeleteSaldoConfirm(ctx context.Context, sender, input string, st State) error {
	if !strings.EqualFold(strings.TrimSpace(input), "ya") {
		return d.send(ctx, sender, "Ketik *ya* untuk melanjutkan\nKetik *batal* untuk membatalkan")
	}
	d.states.Clear(sender)

	// Set to the precomputed final value so a concurrent purchase between
	// the preview and the confirm cannot push the balance negative.
	user, err := d.ledger.Adjust(ctx, st.TargetNumber, st.NewBalance, service.AdjustSet)
	if err != nil {
		return err
	}

	d.send(ctx, st.TargetNumber, fmt.Sprintf("⚠️ *Saldo Anda Dikurangi*\n\n💵 Jumlah: Rp. %s\n💳 Saldo sekarang: Rp. %s\n\nHubungi admin jika ada pertanyaan.",
		rupiah(st.Amount), rupiah(user.Saldo)))
	return d.send(ctx, sender, fmt.Sprintf("✅ Saldo %s berhasil dikurangi Rp. %s\n💳 Saldo sekarang: Rp. %s",
		st.TargetNumber, rupiah(st.Amount), rupiah(user.Saldo)))
}

func (d *Dispatcher) cmdSystemBalance(ctx context.Context, sender, _ string) error {
	result := d.gateway.CheckBalance(ctx)
	if !result.Success {
		return d.send(ctx, sender, "❌ Gagal mengecek saldo sistem: "+result.Message)
	}
	return d.send(ctx, sender, fmt.Sprintf("🏦 *Saldo Sistem*\n\n💰 Saldo deposit: Rp. %s", rupiah(result.Saldo)))
}

func (d *Dispatcher) cmdStats(ctx context.Context, sender, _ string) error {
	users, err := d.ledger.ListAll(ctx)
	if err != nil {
		return err
	}

	var totalSaldo int64
	var totalTrx int
	for _, u := range users {
		totalSaldo += u.Saldo
		totalTrx += u.TotalTrx
	}

	counts, err := d.trxs.CountTransactionsByStatus(ctx)
	if err != nil {
		return err
	}

	return d.send(ctx, sender, fmt.Sprintf(`📊 *Statistik Sistem*

👥 Total user: %d
💰 Total saldo user: Rp. %s
🧾 Total transaksi user: %d

✅ Sukses: %d
⏳ Pending: %d
❌ Gagal: %d`,
		len(users), rupiah(totalSaldo), totalTrx,
		counts[models.TrxStatusSuccess], counts[models.TrxStatusProcessing], counts[models.TrxStatusFailed]))
}

func (d *Dispatcher) cmdTopUsers(ctx context.Context, sender, _ string) error {
	users, err := d.ledger.TopBySaldo(ctx, 10)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return d.send(ctx, sender, "📭 Belum ada user terdaftar.")
	}

	var b strings.Builder
	b.WriteString("🏆 *Top User by Saldo*\n\n")
	for i, u := range users {
		fmt.Fprintf(&b, "%d. %s\n   💳 Rp. %s | 🧾 %d trx\n", i+1, u.PhoneNumber, rupiah(u.Saldo), u.TotalTrx)
	}
	return d.send(ctx, sender, b.String())
}

func (d *Dispatcher) cmdPending(ctx context.Context, sender, _ string) error {
	trxs, err := d.trxs.GetTransactionsByStatus(ctx, models.TrxStatusProcessing, 20)
	if err != nil {
		return err
	}
	if len(trxs) == 0 {
		return d.send(ctx, sender, "✅ Tidak ada transaksi pending.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⏳ *Transaksi Pending (%d)*\n\n", len(trxs))
	for _, trx := range trxs {
		fmt.Fprintf(&b, "🧾 %s\n📞 %s → %s\n📦 %s | Rp. %s\n🕐 %s\n\n",
			trx.TrxID, trx.PhoneNumber, trx.TargetNumber, trx.PackageName,
			rupiah(trx.Amount), trx.CreatedAt.Format("02/01/2006 15:04"))
	}
	return d.send(ctx, sender, b.String())
}

func (d *Dispatcher) cmdSearchUser(ctx context.Context, sender, query string) error {
	users, err := d.ledger.ListAll(ctx)
	if err != nil {
		return err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	var matches []*models.User
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.PhoneNumber), query) {
			matches = append(matches, u)
		}
	}
	if len(matches) == 0 {
		return d.send(ctx, sender, "🔍 Tidak ada user yang cocok dengan \""+query+"\"")
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].PhoneNumber < matches[j].PhoneNumber })

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 *Hasil Pencarian (%d)*\n\n", len(matches))
	for _, u := range matches {
		fmt.Fprintf(&b, "📞 %s\n💳 Rp. %s | 🧾 %d trx\n\n", u.PhoneNumber, rupiah(u.Saldo), u.TotalTrx)
	}
	return d.send(ctx, sender, b.String())
}

func (d *Dispatcher) cmdBroadcast(ctx context.Context, sender, message string) error {
	users, err := d.ledger.ListAll(ctx)
	if err != nil {
		return err
	}

	text := "📢 *Pengumuman*\n\n" + message
	sent, failed := 0, 0
	for phone := range users {
		if phone == sender {
			continue
		}
		if err := d.messenger.Send(ctx, phone, text); err != nil {
			failed++
		} else {
			sent++
		}
	}
	return d.send(ctx, sender, fmt.Sprintf("📢 Broadcast selesai.\n✅ Terkirim: %d\n❌ Gagal: %d", sent, failed))
}

func (d *Dispatcher) cmdResetSaldo(ctx context.Context, sender, args string) error {
	target := NormalizeNumber(args)
	if target == "" {
		return d.send(ctx, sender, "❌ Nomor tidak valid.")
	}

	user, err := d.ledger.Get(ctx, target)
	if err != nil {
		return err
	}
	if user == nil {
		return d.send(ctx, sender, "❌ User "+target+" tidak ditemukan.")
	}

	if _, err := d.ledger.Adjust(ctx, target, 0, service.AdjustSet); err != nil {
		return err
	}

	d.send(ctx, target, "⚠️ *Saldo Anda Direset*\n\n💳 Saldo sekarang: Rp. 0\n\nHubungi admin jika ada pertanyaan.")
	return d.send(ctx, sender, fmt.Sprintf("✅ Saldo %s direset ke 0 (sebelumnya Rp. %s)", target, rupiah(user.Saldo)))
}

func (d *Dispatcher) cmdCheckTrx(ctx context.Context, sender, args string) error {
	trxID := strings.TrimSpace(args)

	trx, err := d.trxs.GetTransaction(ctx, trxID)
	if err != nil {
		return err
	}
	if trx == nil {
		return d.send(ctx, sender, "❌ Transaksi "+trxID+" tidak ditemukan.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *Detail Transaksi*\n\n🧾 ID: %s\n📞 Pembeli: %s\n📞 Target: %s\n📦 Paket: %s\n💰 Harga: Rp. %s\n📊 Status: %s\n🕐 Dibuat: %s\n",
		statusIcon(trx.Status), trx.TrxID, trx.PhoneNumber, trx.TargetNumber, trx.PackageName,
		rupiah(trx.Amount), trx.Status, trx.CreatedAt.Format("02/01/2006 15:04"))
	if trx.ErrorMessage != "" {
		fmt.Fprintf(&b, "📝 Pesan: %s\n", trx.ErrorMessage)
	}

	if trx.HesdaTrxID != "" {
		remote := d.gateway.CheckTransactionStatus(ctx, trx.HesdaTrxID)
		if remote.Success {
			fmt.Fprintf(&b, "\n🌐 *Status Provider:*\n🧾 ID: %s\n📊 Status: %s\n", remote.TrxID, remote.Status)
		} else {
			fmt.Fprintf(&b, "\n🌐 Status provider tidak tersedia: %s\n", remote.Message)
		}
	}
	return d.send(ctx, sender, b.String())
}

func (d *Dispatcher) cmdListPackages(ctx context.Context, sender, _ string) error {
	pkgs := d.catalog.ListAll(ctx)
	if len(pkgs) == 0 {
		return d.send(ctx, sender, "📭 Belum ada paket.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📦 *Daftar Paket (%d)*\n\n", len(pkgs))
	for _, pkg := range pkgs {
		status := "🟢 aktif"
		if !pkg.Active {
			status = "🔴 nonaktif"
		}
		fmt.Fprintf(&b, "*%s* (%s)\n📝 %s\n💰 Jual: Rp. %s | Modal: Rp. %s\n🆔 %s\n\n",
			pkg.Code, status, pkg.Name, rupiah(pkg.Price), rupiah(pkg.Cost), pkg.PackageID)
	}
	return d.send(ctx, sender, b.String())
}

// cmdAddPackage parses "kode|nama|harga|modal|package_id|deskripsi|metode"
// and upserts the package as active.
func (d *Dispatcher) cmdAddPackage(ctx context.Context, sender, args string) error {
	parts := strings.Split(args, "|")
	if len(parts) < 5 {
		return d.send(ctx, sender, "❌ Format: "+d.cfg.Prefix+"addpaket kode|nama|harga|modal|package_id|deskripsi|metode")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	price, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || price <= 0 {
		return d.send(ctx, sender, "❌ Harga tidak valid: "+parts[2])
	}
	cost, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil || cost < 0 {
		return d.send(ctx, sender, "❌ Modal tidak valid: "+parts[3])
	}

	pkg := &models.Package{
		Code:      parts[0],
		Name:      parts[1],
		Price:     price,
		Cost:      cost,
		PackageID: parts[4],
		Active:    true,
	}
	if len(parts) > 5 {
		pkg.Description = parts[5]
	}
	if len(parts) > 6 {
		pkg.PaymentMethods = parts[6]
	}

	if err := d.catalog.Upsert(ctx, pkg); err != nil {
		return d.send(ctx, sender, "❌ Gagal menyimpan paket: "+err.Error())
	}
	return d.send(ctx, sender, fmt.Sprintf("✅ Paket *%s* disimpan.\n📝 %s | Rp. %s", pkg.Code, pkg.Name, rupiah(pkg.Price)))
}

func (d *Dispatcher) cmdDeletePackage(ctx context.Context, sender, args string) error {
	code := strings.TrimSpace(args)
	if _, ok := d.catalog.Resolve(ctx, code); !ok {
		return d.send(ctx, sender, "❌ Paket "+code+" tidak ditemukan.")
	}
	if err := d.catalog.Remove(ctx, code); err != nil {
		return d.send(ctx, sender, "❌ Gagal menghapus paket: "+err.Error())
	}
	return d.send(ctx, sender, "✅ Paket *"+code+"* dihapus.")
}

func (d *Dispatcher) cmdTogglePackage(ctx context.Context, sender, args string) error {
	code := strings.TrimSpace(args)
	pkg, ok := d.catalog.Resolve(ctx, code)
	if !ok {
		return d.send(ctx, sender, "❌ Paket "+code+" tidak ditemukan.")
	}

	next := !pkg.Active
	if err := d.catalog.SetActive(ctx, code, next); err != nil {
		return d.send(ctx, sender, "❌ Gagal mengubah status paket: "+err.Error())
	}
	if next {
		return d.send(ctx, sender, "🟢 Paket *"+code+"* diaktifkan.")
	}
	return d.send(ctx, sender, "🔴 Paket *"+code+"* dinonaktifkan.")
}
