package main

import (
	"fmt"
)

const (
	NDS_TYPE_INTEGER = "INTEGER"
	NDS_TYPE_BIGINT  = "BIGINT"
	NDS_TYPE_VARCHAR = "VARCHAR"
	NDS_TYPE_DATE    = "DATE"
	NDS_TYPE_DOUBLE  = "DOUBLE"
)

type SchemaColumn struct {
	Name string
	Type string // DuckDB type, e.g. "DECIMAL(7,2)"
}

type TableDescriptor struct {
	Name               string
	Schema             []SchemaColumn
	IsMaintenanceTable bool
}

func (table TableDescriptor) ColumnNames() []string {
	names := make([]string, len(table.Schema))
	for i, column := range table.Schema {
		names[i] = column.Name
	}
	return names
}

func (table TableDescriptor) HasColumn(name string) bool {
	for _, column := range table.Schema {
		if column.Name == name {
			return true
		}
	}
	return false
}

// Tables in the order they are converted
type TableSet []TableDescriptor

func (tableSet TableSet) Find(name string) (TableDescriptor, bool) {
	for _, table := range tableSet {
		if table.Name == name {
			return table, true
		}
	}
	return TableDescriptor{}, false
}

func (tableSet TableSet) Names() []string {
	names := make([]string, len(tableSet))
	for i, table := range tableSet {
		names[i] = table.Name
	}
	return names
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

type schemaBuilder struct {
	useDecimal  bool
	maintenance bool
	columns     []SchemaColumn
}

func (builder *schemaBuilder) identifier(names ...string) *schemaBuilder {
	return builder.add(NDS_TYPE_INTEGER, names...)
}

func (builder *schemaBuilder) long(names ...string) *schemaBuilder {
	return builder.add(NDS_TYPE_BIGINT, names...)
}

func (builder *schemaBuilder) integer(names ...string) *schemaBuilder {
	return builder.add(NDS_TYPE_INTEGER, names...)
}

// CHAR(n) and VARCHAR(n) are read as strings
func (builder *schemaBuilder) text(names ...string) *schemaBuilder {
	return builder.add(NDS_TYPE_VARCHAR, names...)
}

func (builder *schemaBuilder) date(names ...string) *schemaBuilder {
	return builder.add(NDS_TYPE_DATE, names...)
}

func (builder *schemaBuilder) decimal(precision int, scale int, names ...string) *schemaBuilder {
	if !builder.useDecimal {
		return builder.add(NDS_TYPE_DOUBLE, names...)
	}
	return builder.add(fmt.Sprintf("DECIMAL(%d,%d)", precision, scale), names...)
}

func (builder *schemaBuilder) add(columnType string, names ...string) *schemaBuilder {
	for _, name := range names {
		builder.columns = append(builder.columns, SchemaColumn{Name: name, Type: columnType})
	}
	return builder
}

func (builder *schemaBuilder) table(name string) TableDescriptor {
	table := TableDescriptor{Name: name, Schema: builder.columns, IsMaintenanceTable: builder.maintenance}
	builder.columns = nil
	return table
}

////////////////////////////////////////////////////////////////////////////////////////////////////////////////////////

// The TPC-DS source tables
func NdsSchemas(useDecimal bool) TableSet {
	b := &schemaBuilder{useDecimal: useDecimal}

	return TableSet{
		b.identifier("ca_address_sk").
			text("ca_address_id", "ca_street_number", "ca_street_name", "ca_street_type", "ca_suite_number", "ca_city", "ca_county", "ca_state", "ca_zip", "ca_country").
			decimal(5, 2, "ca_gmt_offset").
			text("ca_location_type").
			table("customer_address"),

		b.identifier("cd_demo_sk").
			text("cd_gender", "cd_marital_status", "cd_education_status").
			integer("cd_purchase_estimate").
			text("cd_credit_rating").
			integer("cd_dep_count", "cd_dep_employed_count", "cd_dep_college_count").
			table("customer_demographics"),

		b.identifier("d_date_sk").
			text("d_date_id").
			date("d_date").
			integer("d_month_seq", "d_week_seq", "d_quarter_seq", "d_year", "d_dow", "d_moy", "d_dom", "d_qoy", "d_fy_year", "d_fy_quarter_seq", "d_fy_week_seq").
			text("d_day_name", "d_quarter_name", "d_holiday", "d_weekend", "d_following_holiday").
			integer("d_first_dom", "d_last_dom", "d_same_day_ly", "d_same_day_lq").
			text("d_current_day", "d_current_week", "d_current_month", "d_current_quarter", "d_current_year").
			table("date_dim"),

		b.identifier("w_warehouse_sk").
			text("w_warehouse_id", "w_warehouse_name").
			integer("w_warehouse_sq_ft").
			text("w_street_number", "w_street_name", "w_street_type", "w_suite_number", "w_city", "w_county", "w_state", "w_zip", "w_country").
			decimal(5, 2, "w_gmt_offset").
			table("warehouse"),

		b.identifier("sm_ship_mode_sk").
			text("sm_ship_mode_id", "sm_type", "sm_code", "sm_carrier", "sm_contract").
			table("ship_mode"),

		b.identifier("t_time_sk").
			text("t_time_id").
			integer("t_time", "t_hour", "t_minute", "t_second").
			text("t_am_pm", "t_shift", "t_sub_shift", "t_meal_time").
			table("time_dim"),

		b.identifier("r_reason_sk").
			text("r_reason_id", "r_reason_desc").
			table("reason"),

		b.identifier("ib_income_band_sk").
			integer("ib_lower_bound", "ib_upper_bound").
			table("income_band"),

		b.identifier("i_item_sk").
			text("i_item_id").
			date("i_rec_start_date", "i_rec_end_date").
			text("i_item_desc").
			decimal(7, 2, "i_current_price", "i_wholesale_cost").
			integer("i_brand_id").
			text("i_brand").
			integer("i_class_id").
			text("i_class").
			integer("i_category_id").
			text("i_category").
			integer("i_manufact_id").
			text("i_manufact", "i_size", "i_formulation", "i_color", "i_units", "i_container").
			integer("i_manager_id").
			text("i_product_name").
			table("item"),

		b.identifier("s_store_sk").
			text("s_store_id").
			date("s_rec_start_date", "s_rec_end_date").
			identifier("s_closed_date_sk").
			text("s_store_name").
			integer("s_number_employees", "s_floor_space").
			text("s_hours", "s_manager").
			integer("s_market_id").
			text("s_geography_class", "s_market_desc", "s_market_manager").
			integer("s_division_id").
			text("s_division_name").
			integer("s_company_id").
			text("s_company_name", "s_street_number", "s_street_name", "s_street_type", "s_suite_number", "s_city", "s_county", "s_state", "s_zip", "s_country").
			decimal(5, 2, "s_gmt_offset", "s_tax_precentage").
			table("store"),

		b.identifier("cc_call_center_sk").
			text("cc_call_center_id").
			date("cc_rec_start_date", "cc_rec_end_date").
			identifier("cc_closed_date_sk", "cc_open_date_sk").
			text("cc_name", "cc_class").
			integer("cc_employees", "cc_sq_ft").
			text("cc_hours", "cc_manager").
			integer("cc_mkt_id").
			text("cc_mkt_class", "cc_mkt_desc", "cc_market_manager").
			integer("cc_division").
			text("cc_division_name").
			integer("cc_company").
			text("cc_company_name", "cc_street_number", "cc_street_name", "cc_street_type", "cc_suite_number", "cc_city", "cc_county", "cc_state", "cc_zip", "cc_country").
			decimal(5, 2, "cc_gmt_offset", "cc_tax_percentage").
			table("call_center"),

		b.identifier("c_customer_sk").
			text("c_customer_id").
			identifier("c_current_cdemo_sk", "c_current_hdemo_sk", "c_current_addr_sk", "c_first_shipto_date_sk", "c_first_sales_date_sk").
			text("c_salutation", "c_first_name", "c_last_name", "c_preferred_cust_flag").
			integer("c_birth_day", "c_birth_month", "c_birth_year").
			text("c_birth_country", "c_login", "c_email_address").
			identifier("c_last_review_date_sk").
			table("customer"),

		b.identifier("web_site_sk").
			text("web_site_id").
			date("web_rec_start_date", "web_rec_end_date").
			text("web_name").
			identifier("web_open_date_sk", "web_close_date_sk").
			text("web_class", "web_manager").
			integer("web_mkt_id").
			text("web_mkt_class", "web_mkt_desc", "web_market_manager").
			integer("web_company_id").
			text("web_company_name", "web_street_number", "web_street_name", "web_street_type", "web_suite_number", "web_city", "web_county", "web_state", "web_zip", "web_country").
			decimal(5, 2, "web_gmt_offset", "web_tax_percentage").
			table("web_site"),

		b.identifier("sr_returned_date_sk", "sr_return_time_sk", "sr_item_sk", "sr_customer_sk", "sr_cdemo_sk", "sr_hdemo_sk", "sr_addr_sk", "sr_store_sk", "sr_reason_sk").
			long("sr_ticket_number").
			integer("sr_return_quantity").
			decimal(7, 2, "sr_return_amt", "sr_return_tax", "sr_return_amt_inc_tax", "sr_fee", "sr_return_ship_cost", "sr_refunded_cash", "sr_reversed_charge", "sr_store_credit", "sr_net_loss").
			table("store_returns"),

		b.identifier("hd_demo_sk", "hd_income_band_sk").
			text("hd_buy_potential").
			integer("hd_dep_count", "hd_vehicle_count").
			table("household_demographics"),

		b.identifier("wp_web_page_sk").
			text("wp_web_page_id").
			date("wp_rec_start_date", "wp_rec_end_date").
			identifier("wp_creation_date_sk", "wp_access_date_sk").
			text("wp_autogen_flag").
			identifier("wp_customer_sk").
			text("wp_url", "wp_type").
			integer("wp_char_count", "wp_link_count", "wp_image_count", "wp_max_ad_count").
			table("web_page"),

		b.identifier("p_promo_sk").
			text("p_promo_id").
			identifier("p_start_date_sk", "p_end_date_sk", "p_item_sk").
			decimal(15, 2, "p_cost").
			integer("p_response_target").
			text("p_promo_name", "p_channel_dmail", "p_channel_email", "p_channel_catalog", "p_channel_tv", "p_channel_radio", "p_channel_press", "p_channel_event", "p_channel_demo", "p_channel_details", "p_purpose", "p_discount_active").
			table("promotion"),

		b.identifier("cp_catalog_page_sk").
			text("cp_catalog_page_id").
			identifier("cp_start_date_sk", "cp_end_date_sk").
			text("cp_department").
			integer("cp_catalog_number", "cp_catalog_page_number").
			text("cp_description", "cp_type").
			table("catalog_page"),

		b.identifier("inv_date_sk", "inv_item_sk", "inv_warehouse_sk").
			integer("inv_quantity_on_hand").
			table("inventory"),

		b.identifier("cr_returned_date_sk", "cr_returned_time_sk", "cr_item_sk", "cr_refunded_customer_sk", "cr_refunded_cdemo_sk", "cr_refunded_hdemo_sk", "cr_refunded_addr_sk", "cr_returning_customer_sk", "cr_returning_cdemo_sk", "cr_returning_hdemo_sk", "cr_returning_addr_sk", "cr_call_center_sk", "cr_catalog_page_sk", "cr_ship_mode_sk", "cr_warehouse_sk", "cr_reason_sk").
			long("cr_order_number").
			integer("cr_return_quantity").
			decimal(7, 2, "cr_return_amount", "cr_return_tax", "cr_return_amt_inc_tax", "cr_fee", "cr_return_ship_cost", "cr_refunded_cash", "cr_reversed_charge", "cr_store_credit", "cr_net_loss").
			table("catalog_returns"),

		b.identifier("wr_returned_date_sk", "wr_returned_time_sk", "wr_item_sk", "wr_refunded_customer_sk", "wr_refunded_cdemo_sk", "wr_refunded_hdemo_sk", "wr_refunded_addr_sk", "wr_returning_customer_sk", "wr_returning_cdemo_sk", "wr_returning_hdemo_sk", "wr_returning_addr_sk", "wr_web_page_sk", "wr_reason_sk").
			long("wr_order_number").
			integer("wr_return_quantity").
			decimal(7, 2, "wr_return_amt", "wr_return_tax", "wr_return_amt_inc_tax", "wr_fee", "wr_return_ship_cost", "wr_refunded_cash", "wr_reversed_charge", "wr_account_credit", "wr_net_loss").
			table("web_returns"),

		b.identifier("ws_sold_date_sk", "ws_sold_time_sk", "ws_ship_date_sk", "ws_item_sk", "ws_bill_customer_sk", "ws_bill_cdemo_sk", "ws_bill_hdemo_sk", "ws_bill_addr_sk", "ws_ship_customer_sk", "ws_ship_cdemo_sk", "ws_ship_hdemo_sk", "ws_ship_addr_sk", "ws_web_page_sk", "ws_web_site_sk", "ws_ship_mode_sk", "ws_warehouse_sk", "ws_promo_sk").
			long("ws_order_number").
			integer("ws_quantity").
			decimal(7, 2, "ws_wholesale_cost", "ws_list_price", "ws_sales_price", "ws_ext_discount_amt", "ws_ext_sales_price", "ws_ext_wholesale_cost", "ws_ext_list_price", "ws_ext_tax", "ws_coupon_amt", "ws_ext_ship_cost", "ws_net_paid", "ws_net_paid_inc_tax", "ws_net_paid_inc_ship", "ws_net_paid_inc_ship_tax", "ws_net_profit").
			table("web_sales"),

		b.identifier("cs_sold_date_sk", "cs_sold_time_sk", "cs_ship_date_sk", "cs_bill_customer_sk", "cs_bill_cdemo_sk", "cs_bill_hdemo_sk", "cs_bill_addr_sk", "cs_ship_customer_sk", "cs_ship_cdemo_sk", "cs_ship_hdemo_sk", "cs_ship_addr_sk", "cs_call_center_sk", "cs_catalog_page_sk", "cs_ship_mode_sk", "cs_warehouse_sk", "cs_item_sk", "cs_promo_sk").
			long("cs_order_number").
			integer("cs_quantity").
			decimal(7, 2, "cs_wholesale_cost", "cs_list_price", "cs_sales_price", "cs_ext_discount_amt", "cs_ext_sales_price", "cs_ext_wholesale_cost", "cs_ext_list_price", "cs_ext_tax", "cs_coupon_amt", "cs_ext_ship_cost", "cs_net_paid", "cs_net_paid_inc_tax", "cs_net_paid_inc_ship", "cs_net_paid_inc_ship_tax", "cs_net_profit").
			table("catalog_sales"),

		b.identifier("ss_sold_date_sk", "ss_sold_time_sk", "ss_item_sk", "ss_customer_sk", "ss_cdemo_sk", "ss_hdemo_sk", "ss_addr_sk", "ss_store_sk", "ss_promo_sk").
			long("ss_ticket_number").
			integer("ss_quantity").
			decimal(7, 2, "ss_wholesale_cost", "ss_list_price", "ss_sales_price", "ss_ext_discount_amt", "ss_ext_sales_price", "ss_ext_wholesale_cost", "ss_ext_list_price", "ss_ext_tax", "ss_coupon_amt", "ss_net_paid", "ss_net_paid_inc_tax", "ss_net_profit").
			table("store_sales"),
	}
}

// The data maintenance source tables
func NdsMaintenanceSchemas(useDecimal bool) TableSet {
	b := &schemaBuilder{useDecimal: useDecimal, maintenance: true}

	return TableSet{
		b.integer("plin_purchase_id", "plin_line_number").
			text("plin_item_id", "plin_promotion_id").
			integer("plin_quantity").
			decimal(7, 2, "plin_sale_price", "plin_coupon_amt").
			text("plin_comment").
			table("s_purchase_lineitem"),

		b.integer("purc_purchase_id").
			text("purc_store_id", "purc_customer_id", "purc_purchase_date").
			integer("purc_purchase_time", "purc_register_id", "purc_clerk_id").
			text("purc_comment").
			table("s_purchase"),

		b.integer("cord_order_id").
			text("cord_bill_customer_id", "cord_ship_customer_id", "cord_order_date").
			integer("cord_order_time").
			text("cord_ship_mode_id", "cord_call_center_id", "cord_order_comments").
			table("s_catalog_order"),

		b.integer("word_order_id").
			text("word_bill_customer_id", "word_ship_customer_id", "word_order_date").
			integer("word_order_time").
			text("word_ship_mode_id", "word_web_site_id", "word_order_comments").
			table("s_web_order"),

		b.integer("clin_order_id", "clin_line_number").
			text("clin_item_id", "clin_promotion_id").
			integer("clin_quantity").
			decimal(7, 2, "clin_sales_price", "clin_coupon_amt").
			text("clin_warehouse_id", "clin_ship_date").
			integer("clin_catalog_number", "clin_catalog_page_number").
			decimal(7, 2, "clin_ship_cost").
			table("s_catalog_order_lineitem"),

		b.integer("wlin_order_id", "wlin_line_number").
			text("wlin_item_id", "wlin_promotion_id").
			integer("wlin_quantity").
			decimal(7, 2, "wlin_sales_price", "wlin_coupon_amt").
			text("wlin_warehouse_id", "wlin_ship_date").
			decimal(7, 2, "wlin_ship_cost").
			text("wlin_web_page_id").
			table("s_web_order_lineitem"),

		b.text("sret_store_id", "sret_purchase_id").
			integer("sret_line_number").
			text("sret_item_id", "sret_customer_id", "sret_return_date", "sret_return_time", "sret_ticket_number").
			integer("sret_return_qty").
			decimal(7, 2, "sret_return_amt", "sret_return_tax", "sret_return_fee", "sret_return_ship_cost", "sret_refunded_cash", "sret_reversed_charge", "sret_store_credit").
			text("sret_reason_id").
			table("s_store_returns"),

		b.text("cret_call_center_id").
			integer("cret_order_id", "cret_line_number").
			text("cret_item_id", "cret_return_customer_id", "cret_refund_customer_id", "cret_return_date", "cret_return_time").
			integer("cret_return_qty").
			decimal(7, 2, "cret_return_amt", "cret_return_tax", "cret_return_fee", "cret_return_ship_cost", "cret_refunded_cash", "cret_reversed_charge", "cret_merchant_credit").
			text("cret_reason_id", "cret_shipmode_id", "cret_catalog_page_id", "cret_warehouse_id").
			table("s_catalog_returns"),

		b.text("wret_web_page_id").
			integer("wret_order_id", "wret_line_number").
			text("wret_item_id", "wret_return_customer_id", "wret_refund_customer_id", "wret_return_date", "wret_return_time").
			integer("wret_return_qty").
			decimal(7, 2, "wret_return_amt", "wret_return_tax", "wret_return_fee", "wret_return_ship_cost", "wret_refunded_cash", "wret_reversed_charge", "wret_account_credit").
			text("wret_reason_id").
			table("s_web_returns"),

		b.text("invn_warehouse_id", "invn_item_id", "invn_date").
			integer("invn_qty_on_hand").
			table("s_inventory"),

		b.text("date1", "date2").
			table("delete"),

		b.text("date1", "date2").
			table("inventory_delete"),
	}
}
