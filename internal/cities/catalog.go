package cities

import "github.com/playperu/geoduel/internal/geoduel"

// catalog is the tiered list of target cities. Tier 1 holds world capitals,
// tier 5 remote settlements.
var catalog = []geoduel.City{
	{Name: "London", Country: "United Kingdom", Lat: 51.5074, Lng: -0.1278, Difficulty: 1},
	{Name: "Paris", Country: "France", Lat: 48.8566, Lng: 2.3522, Difficulty: 1},
	{Name: "New York", Country: "United States", Lat: 40.7128, Lng: -74.0060, Difficulty: 1},
	{Name: "Tokyo", Country: "Japan", Lat: 35.6895, Lng: 139.6917, Difficulty: 1},
	{Name: "Sydney", Country: "Australia", Lat: -33.8688, Lng: 151.2093, Difficulty: 1},
	{Name: "Cairo", Country: "Egypt", Lat: 30.0444, Lng: 31.2357, Difficulty: 1},
	{Name: "Moscow", Country: "Russia", Lat: 55.7558, Lng: 37.6176, Difficulty: 1},
	{Name: "Beijing", Country: "China", Lat: 39.9042, Lng: 116.4074, Difficulty: 1},
	{Name: "Rio de Janeiro", Country: "Brazil", Lat: -22.9068, Lng: -43.1729, Difficulty: 1},
	{Name: "Los Angeles", Country: "United States", Lat: 34.0522, Lng: -118.2437, Difficulty: 1},
	{Name: "Rome", Country: "Italy", Lat: 41.9028, Lng: 12.4964, Difficulty: 1},
	{Name: "Madrid", Country: "Spain", Lat: 40.4168, Lng: -3.7038, Difficulty: 1},
	{Name: "Berlin", Country: "Germany", Lat: 52.5200, Lng: 13.4050, Difficulty: 1},
	{Name: "Amsterdam", Country: "Netherlands", Lat: 52.3676, Lng: 4.9041, Difficulty: 1},
	{Name: "Bangkok", Country: "Thailand", Lat: 13.7563, Lng: 100.5018, Difficulty: 1},
	{Name: "Dubai", Country: "UAE", Lat: 25.2048, Lng: 55.2708, Difficulty: 1},
	{Name: "Singapore", Country: "Singapore", Lat: 1.3521, Lng: 103.8198, Difficulty: 1},
	{Name: "Hong Kong", Country: "China", Lat: 22.3193, Lng: 114.1694, Difficulty: 1},
	{Name: "Mumbai", Country: "India", Lat: 19.0760, Lng: 72.8777, Difficulty: 1},
	{Name: "Istanbul", Country: "Turkey", Lat: 41.0082, Lng: 28.9784, Difficulty: 1},
	{Name: "Seoul", Country: "South Korea", Lat: 37.5665, Lng: 126.9780, Difficulty: 1},
	{Name: "Mexico City", Country: "Mexico", Lat: 19.4326, Lng: -99.1332, Difficulty: 1},
	{Name: "Buenos Aires", Country: "Argentina", Lat: -34.6118, Lng: -58.3960, Difficulty: 1},
	{Name: "Toronto", Country: "Canada", Lat: 43.6532, Lng: -79.3832, Difficulty: 1},
	{Name: "Cape Town", Country: "South Africa", Lat: -33.9249, Lng: 18.4241, Difficulty: 1},
	{Name: "Barcelona", Country: "Spain", Lat: 41.3851, Lng: 2.1734, Difficulty: 2},
	{Name: "Milan", Country: "Italy", Lat: 45.4642, Lng: 9.1900, Difficulty: 2},
	{Name: "Munich", Country: "Germany", Lat: 48.1351, Lng: 11.5820, Difficulty: 2},
	{Name: "Lyon", Country: "France", Lat: 45.7640, Lng: 4.8357, Difficulty: 2},
	{Name: "Manchester", Country: "United Kingdom", Lat: 53.4808, Lng: -2.2426, Difficulty: 2},
	{Name: "Hamburg", Country: "Germany", Lat: 53.5511, Lng: 9.9937, Difficulty: 2},
	{Name: "Phoenix", Country: "United States", Lat: 33.4484, Lng: -112.0740, Difficulty: 2},
	{Name: "Philadelphia", Country: "United States", Lat: 39.9526, Lng: -75.1652, Difficulty: 2},
	{Name: "Houston", Country: "United States", Lat: 29.7604, Lng: -95.3698, Difficulty: 2},
	{Name: "Boston", Country: "United States", Lat: 42.3601, Lng: -71.0589, Difficulty: 2},
	{Name: "Seattle", Country: "United States", Lat: 47.6062, Lng: -122.3321, Difficulty: 2},
	{Name: "Montreal", Country: "Canada", Lat: 45.5017, Lng: -73.5673, Difficulty: 2},
	{Name: "Melbourne", Country: "Australia", Lat: -37.8136, Lng: 144.9631, Difficulty: 2},
	{Name: "Brisbane", Country: "Australia", Lat: -27.4698, Lng: 153.0251, Difficulty: 2},
	{Name: "Osaka", Country: "Japan", Lat: 34.6937, Lng: 135.5023, Difficulty: 2},
	{Name: "Kyoto", Country: "Japan", Lat: 35.0116, Lng: 135.7681, Difficulty: 2},
	{Name: "Bangalore", Country: "India", Lat: 12.9716, Lng: 77.5946, Difficulty: 2},
	{Name: "Chennai", Country: "India", Lat: 13.0827, Lng: 80.2707, Difficulty: 2},
	{Name: "Gothenburg", Country: "Sweden", Lat: 57.7089, Lng: 11.9746, Difficulty: 3},
	{Name: "Porto", Country: "Portugal", Lat: 41.1579, Lng: -8.6291, Difficulty: 3},
	{Name: "Florence", Country: "Italy", Lat: 43.7696, Lng: 11.2558, Difficulty: 3},
	{Name: "Nice", Country: "France", Lat: 43.7102, Lng: 7.2620, Difficulty: 3},
	{Name: "Bordeaux", Country: "France", Lat: 44.8378, Lng: -0.5792, Difficulty: 3},
	{Name: "Bilbao", Country: "Spain", Lat: 43.2627, Lng: -2.9253, Difficulty: 3},
	{Name: "Krakow", Country: "Poland", Lat: 50.0647, Lng: 19.9450, Difficulty: 3},
	{Name: "Gdansk", Country: "Poland", Lat: 54.3520, Lng: 18.6466, Difficulty: 3},
	{Name: "Bratislava", Country: "Slovakia", Lat: 48.1486, Lng: 17.1077, Difficulty: 3},
	{Name: "Ljubljana", Country: "Slovenia", Lat: 46.0569, Lng: 14.5058, Difficulty: 3},
	{Name: "Tallinn", Country: "Estonia", Lat: 59.4370, Lng: 24.7536, Difficulty: 3},
	{Name: "Riga", Country: "Latvia", Lat: 56.9496, Lng: 24.1052, Difficulty: 3},
	{Name: "Vilnius", Country: "Lithuania", Lat: 54.6872, Lng: 25.2797, Difficulty: 3},
	{Name: "Reykjavik", Country: "Iceland", Lat: 64.1466, Lng: -21.9426, Difficulty: 3},
	{Name: "Sarajevo", Country: "Bosnia and Herzegovina", Lat: 43.8563, Lng: 18.4131, Difficulty: 3},
	{Name: "Tartu", Country: "Estonia", Lat: 58.3780, Lng: 26.7290, Difficulty: 4},
	{Name: "Tromso", Country: "Norway", Lat: 69.6492, Lng: 18.9553, Difficulty: 4},
	{Name: "Rovaniemi", Country: "Finland", Lat: 66.5039, Lng: 25.7294, Difficulty: 4},
	{Name: "Oulu", Country: "Finland", Lat: 65.0121, Lng: 25.4651, Difficulty: 4},
	{Name: "Lulea", Country: "Sweden", Lat: 65.5848, Lng: 22.1547, Difficulty: 4},
	{Name: "Kiruna", Country: "Sweden", Lat: 67.8558, Lng: 20.2253, Difficulty: 4},
	{Name: "Bodo", Country: "Norway", Lat: 67.2804, Lng: 14.4049, Difficulty: 4},
	{Name: "Faroe Islands", Country: "Denmark", Lat: 61.8926, Lng: -6.9118, Difficulty: 4},
	{Name: "Nuuk", Country: "Greenland", Lat: 64.1836, Lng: -51.7214, Difficulty: 4},
	{Name: "Honningsvag", Country: "Norway", Lat: 70.9822, Lng: 25.9709, Difficulty: 4},
	{Name: "Andorra la Vella", Country: "Andorra", Lat: 42.5063, Lng: 1.5218, Difficulty: 4},
	{Name: "San Marino", Country: "San Marino", Lat: 43.9424, Lng: 12.4578, Difficulty: 4},
	{Name: "Vaduz", Country: "Liechtenstein", Lat: 47.1410, Lng: 9.5209, Difficulty: 4},
	{Name: "Monaco", Country: "Monaco", Lat: 43.7384, Lng: 7.4246, Difficulty: 4},
	{Name: "Vatican City", Country: "Vatican City", Lat: 41.9029, Lng: 12.4534, Difficulty: 4},
	{Name: "Longyearbyen", Country: "Norway", Lat: 78.2232, Lng: 15.6267, Difficulty: 5},
	{Name: "Barentsburg", Country: "Norway", Lat: 78.0648, Lng: 14.2335, Difficulty: 5},
	{Name: "Alert", Country: "Canada", Lat: 82.5018, Lng: -62.3481, Difficulty: 5},
	{Name: "Ny-Alesund", Country: "Norway", Lat: 78.9273, Lng: 11.9341, Difficulty: 5},
	{Name: "Ushuaia", Country: "Argentina", Lat: -54.8019, Lng: -68.3030, Difficulty: 5},
	{Name: "Punta Arenas", Country: "Chile", Lat: -53.1638, Lng: -70.9171, Difficulty: 5},
	{Name: "McMurdo Station", Country: "Antarctica", Lat: -77.8419, Lng: 166.6863, Difficulty: 5},
	{Name: "Pitcairn Island", Country: "United Kingdom", Lat: -25.0660, Lng: -130.1003, Difficulty: 5},
	{Name: "Tristan da Cunha", Country: "United Kingdom", Lat: -37.1052, Lng: -12.2777, Difficulty: 5},
	{Name: "St. Helena", Country: "United Kingdom", Lat: -15.9387, Lng: -5.7180, Difficulty: 5},
}
